package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/query"
	"codeberg.org/mutker/sysrec/internal/record"
	"codeberg.org/mutker/sysrec/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	From   string
	To     string
	Format string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <sys|component|disk|ram>",
		Short: "Print recorded samples",
		Long: `Print the recorded samples of one kind, optionally limited to a
timestamp range. Both bounds are inclusive and use the layout
YYYY-MM-DD HH:MM:SS in local time.

Examples:
  sysrec query ram
  sysrec query component --from "2024-01-01 00:00:00" --to "2024-01-02 00:00:00"
  sysrec query disk --format yaml`,
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		ValidArgs:    []string{"sys", "component", "disk", "ram"},
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := record.ParseKind(args[0])
			if err != nil {
				return err
			}

			_, cfg, closeLog, err := setup(cmd.Flags())
			if err != nil {
				return err
			}
			defer closeLog()

			store, err := storage.Open(cfg.Storage())
			if err != nil {
				logger.ErrorWithCode(err).Str("database", cfg.Database).Msg("Failed to open storage")
				return err
			}
			defer store.Close()

			rows, err := runQuery(cmd.Context(), store, kind, opts)
			if err != nil {
				return err
			}

			return writeRecords(cmd.OutOrStdout(), opts.Format, rows)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "start of the range (inclusive)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end of the range (inclusive)")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	return cmd
}

func runQuery(ctx context.Context, store *storage.Handle, kind record.Kind, opts *QueryOptions) ([]record.Record, error) {
	if err := store.EnsureSchema(ctx); err != nil {
		logger.ErrorWithCode(err).Msg("Schema is incomplete")
	}

	svc := query.NewService(store)
	if opts.From == "" && opts.To == "" {
		return svc.All(ctx, kind)
	}

	// Both bounds must be present and well formed.
	start, end, err := query.ParseRange(opts.From + " " + opts.To)
	if err != nil {
		return nil, err
	}

	return svc.ByRange(ctx, kind, start, end)
}

func writeRecords(w io.Writer, format string, rows []record.Record) error {
	if rows == nil {
		rows = []record.Record{}
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return errors.New().Wrap(errors.ErrInternal, err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return errors.New().Wrap(errors.ErrInternal, err)
		}
		return enc.Close()
	default:
		for _, r := range rows {
			if _, err := fmt.Fprintln(w, r); err != nil {
				return err
			}
		}
		return nil
	}
}
