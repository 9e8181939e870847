package metrics

import "codeberg.org/mutker/sysrec/internal/errors"

const (
	ErrSystemIdentity = errors.ErrSystemIdentity
	ErrMemory         = errors.ErrorCode("metrics_memory_failed")
	ErrDisks          = errors.ErrorCode("metrics_disks_failed")
	ErrSensors        = errors.ErrorCode("metrics_sensors_failed")
)
