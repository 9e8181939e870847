package cli

import (
	"io"
	"os"

	"codeberg.org/mutker/sysrec/internal/config"
	"codeberg.org/mutker/sysrec/internal/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCommand creates the sysrec command. Without a subcommand it starts
// the recorder and the interactive menu.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysrec",
		Short: "Record local system telemetry",
		Long: `Record OS identity, thermal sensors, disk capacity and memory usage
into a local SQLite database, and browse the recorded samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecorder(cmd.Context(), cmd.Flags(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewQueryCommand())

	return cmd
}

// setup loads the configuration and points the logger at its destination.
// The returned func closes the log file.
func setup(flags *pflag.FlagSet) (*config.Loader, *config.Config, func(), error) {
	loader, err := config.New(flags)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	out := logger.Init(cfg.Logger())
	logger.WithField("run_id", uuid.NewString())
	logger.Debug().Str("config_file", loader.FileUsed()).Msg("Config loaded")

	closeLog := func() {
		if c, ok := out.(io.Closer); ok && out != io.Writer(os.Stderr) {
			c.Close()
		}
	}

	return loader, cfg, closeLog, nil
}
