// Package gpu reads NVIDIA GPU temperatures through NVML so they can be
// recorded next to the host's own thermal sensors.
package gpu

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/metrics"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

type gpuDevice struct {
	label  string
	handle device
}

// Reader reports one temperature per detected GPU.
type Reader struct {
	nvml    nvmlController
	mu      sync.Mutex
	devices []gpuDevice
}

// Open initializes NVML and enumerates the GPUs. It fails when no NVIDIA
// driver is loaded.
func Open() (*Reader, error) {
	return open(&nvmlWrapper{})
}

func open(ctrl nvmlController) (*Reader, error) {
	if err := ctrl.Initialize(); err != nil {
		return nil, err
	}

	count, err := ctrl.GetDeviceCount()
	if err != nil {
		ctrl.Shutdown()
		return nil, err
	}

	r := &Reader{nvml: ctrl}
	for i := 0; i < count; i++ {
		dev, err := ctrl.GetDevice(i)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("Skipping GPU")
			continue
		}

		name, ret := dev.GetName()
		if !IsNVMLSuccess(ret) {
			name = "GPU"
		}

		r.devices = append(r.devices, gpuDevice{label: label(i, name), handle: dev})
		logger.Info().Msgf("Detected GPU: %v", name)
	}

	if len(r.devices) == 0 {
		ctrl.Shutdown()
		return nil, errors.New().New(ErrDeviceNotFound)
	}

	return r, nil
}

// Temperatures implements metrics.SensorReader.
func (r *Reader) Temperatures(_ context.Context) ([]metrics.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]metrics.Sensor, 0, len(r.devices))
	for _, d := range r.devices {
		temp, ret := d.handle.GetTemperature(nvml.TEMPERATURE_GPU)
		if !IsNVMLSuccess(ret) {
			logger.Debug().Str("gpu", d.label).Int("nvml_return", int(ret)).Msg("Failed to read temperature")
			continue
		}
		out = append(out, metrics.Sensor{Label: d.label, Temperature: float64(temp)})
	}

	if len(out) == 0 {
		return nil, errors.New().New(ErrTemperatureReadFailed)
	}

	return out, nil
}

func (r *Reader) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = nil

	return r.nvml.Shutdown()
}

func label(index int, name string) string {
	return fmt.Sprintf("nvidia%d %s", index, name)
}
