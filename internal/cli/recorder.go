package cli

import (
	"context"
	"io"

	"codeberg.org/mutker/sysrec/internal/config"
	"codeberg.org/mutker/sysrec/internal/gpu"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/metrics"
	"codeberg.org/mutker/sysrec/internal/pid"
	"codeberg.org/mutker/sysrec/internal/query"
	"codeberg.org/mutker/sysrec/internal/sampler"
	"codeberg.org/mutker/sysrec/internal/storage"
	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"
)

func runRecorder(ctx context.Context, flags *pflag.FlagSet, in io.Reader, out io.Writer) error {
	loader, cfg, closeLog, err := setup(flags)
	if err != nil {
		return err
	}
	defer closeLog()

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = pid.DefaultPath()
	}
	if err := pid.Write(pidPath); err != nil {
		logger.ErrorWithCode(err).Str("path", pidPath).Msg("Failed to write PID file")
		return err
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	store, err := storage.Open(cfg.Storage())
	if err != nil {
		logger.ErrorWithCode(err).Str("database", cfg.Database).Msg("Failed to open storage")
		return err
	}
	defer store.Close()

	var sensors []metrics.SensorReader
	if cfg.GPU {
		reader, err := gpu.Open()
		if err != nil {
			logger.Warn().Err(err).Msg("GPU temperatures unavailable")
		} else {
			defer reader.Shutdown()
			sensors = append(sensors, reader)
		}
	}

	control := sampler.NewControl()
	engine := sampler.New(store, metrics.NewHostSource(sensors...), control, out,
		sampler.WithInterval(cfg.IntervalDuration()))

	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		logger.Info().Msg("Recorder stopped")
	}()

	wg.Go(func() {
		if err := engine.Run(ctx); err != nil {
			logger.ErrorWithCode(err).Msg("Sampling engine failed")
		}
	})

	select {
	case <-engine.Ready():
	case <-ctx.Done():
		return nil
	}

	watchInterval(ctx, loader, engine)

	// The menu blocks on input, so it is abandoned rather than awaited when
	// ctx ends first.
	menuDone := make(chan error, 1)
	go func() {
		menuDone <- NewMenu(in, out, control, query.NewService(store)).Run(ctx)
	}()

	select {
	case err = <-menuDone:
	case <-ctx.Done():
		logger.Info().Msg("Received termination signal")
	}

	if sendErr := control.Send(ctx, sampler.Stop); sendErr != nil {
		logger.Debug().Err(sendErr).Msg("Stop not delivered")
	}

	return err
}

// watchInterval applies interval and log level changes from the config file.
func watchInterval(ctx context.Context, loader config.Watcher, engine *sampler.Engine) {
	err := loader.Watch(ctx, func(cfg *config.Config) {
		engine.SetInterval(cfg.IntervalDuration())
		logger.SetLogLevel(logger.ParseLevel(cfg.LogLevel))
		logger.Info().Dur("interval", engine.Interval()).Msg("Sampling interval updated")
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Config watch disabled")
	}
}
