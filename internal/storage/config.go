package storage

import "codeberg.org/mutker/sysrec/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "sysrec.db"
	busyTimeoutMS  = 5000
)

type Config struct {
	DBPath string
}

func DefaultConfig() Config {
	return Config{
		DBPath: defaultDBPath,
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New().New(ErrInvalidDBPath)
	}
	return nil
}
