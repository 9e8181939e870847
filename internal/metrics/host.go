package metrics

import (
	"context"
	"sync"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// HostSource reads the local host through gopsutil.
type HostSource struct {
	extra []SensorReader

	mu      sync.RWMutex
	memory  Memory
	disks   []Disk
	sensors []Sensor
}

// NewHostSource returns a source for the local host. Readers in extra add
// their sensors to every refresh.
func NewHostSource(extra ...SensorReader) *HostSource {
	return &HostSource{extra: extra}
}

func (s *HostSource) SystemIdentity(ctx context.Context) (Identity, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Identity{}, errors.New().Wrap(ErrSystemIdentity, err)
	}

	id := Identity{
		OS:        info.Platform,
		OSVersion: info.PlatformVersion,
		Hostname:  info.Hostname,
	}
	if id.OS == "" {
		id.OS = info.OS
	}
	if id.OSVersion == "" {
		id.OSVersion = info.KernelVersion
	}

	return id, nil
}

// Refresh reads memory, disks and sensors. A failing group keeps its previous
// readings. All failures are returned together once every group was tried.
func (s *HostSource) Refresh(ctx context.Context) error {
	errFactory := errors.New()
	var failed []error

	memory, err := readMemory(ctx)
	if err != nil {
		failed = append(failed, errFactory.Wrap(ErrMemory, err))
	}

	disks, err := readDisks(ctx)
	if err != nil {
		failed = append(failed, errFactory.Wrap(ErrDisks, err))
	}

	temps, err := s.readSensors(ctx)
	if err != nil {
		failed = append(failed, errFactory.Wrap(ErrSensors, err))
	}

	s.mu.Lock()
	if memory != nil {
		s.memory = *memory
	}
	if disks != nil {
		s.disks = disks
	}
	s.sensors = temps
	s.mu.Unlock()

	return errors.Join(failed...)
}

func (s *HostSource) Memory() Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.memory
}

func (s *HostSource) Disks() []Disk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Disk(nil), s.disks...)
}

func (s *HostSource) Sensors() []Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Sensor(nil), s.sensors...)
}

func readMemory(ctx context.Context) (*Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	m := &Memory{
		TotalMemory: vm.Total,
		UsedMemory:  vm.Used,
	}

	// Hosts without swap still report memory.
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		m.TotalSwap = swap.Total
		m.UsedSwap = swap.Used
	} else {
		logger.Debug().Err(err).Msg("Swap usage unavailable")
	}

	return m, nil
}

func readDisks(ctx context.Context) ([]Disk, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(partitions))
	disks := make([]Disk, 0, len(partitions))
	for _, p := range partitions {
		// Bind mounts report the same device more than once.
		if seen[p.Device] {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			logger.Debug().Err(err).Str("mountpoint", p.Mountpoint).Msg("Skipping disk")
			continue
		}
		if usage.Total == 0 {
			continue
		}

		seen[p.Device] = true
		disks = append(disks, Disk{
			Name:           p.Device,
			TotalBytes:     usage.Total,
			AvailableBytes: usage.Free,
		})
	}

	return disks, nil
}

// readSensors always returns the readings it could gather; extra readers are
// consulted even when the host sensors fail.
func (s *HostSource) readSensors(ctx context.Context) ([]Sensor, error) {
	var hostErr error

	temps, err := sensors.TemperaturesWithContext(ctx)
	switch {
	// gopsutil returns partial readings together with a warning error.
	case err != nil && len(temps) == 0:
		hostErr = err
	case err != nil:
		logger.Debug().Err(err).Msg("Some sensors could not be read")
	}

	out := make([]Sensor, 0, len(temps))
	for _, t := range temps {
		out = append(out, Sensor{Label: t.SensorKey, Temperature: t.Temperature})
	}

	for _, r := range s.extra {
		extra, err := r.Temperatures(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read extra sensors")
			continue
		}
		out = append(out, extra...)
	}

	return out, hostErr
}
