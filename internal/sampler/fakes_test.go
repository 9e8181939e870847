package sampler

import (
	"bytes"
	"context"
	"sync"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/metrics"
	"codeberg.org/mutker/sysrec/internal/record"
)

type fakeSource struct {
	mu        sync.Mutex
	id        metrics.Identity
	memory    metrics.Memory
	disks     []metrics.Disk
	sensors   []metrics.Sensor
	refreshes int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		id:     metrics.Identity{OS: "debian", OSVersion: "12", Hostname: "testhost"},
		memory: metrics.Memory{TotalMemory: 16 << 30, UsedMemory: 4 << 30, TotalSwap: 1 << 30},
		disks: []metrics.Disk{
			{Name: "/dev/sda1", TotalBytes: 100 << 30, AvailableBytes: 40 << 30},
			{Name: "/dev/sdb1", TotalBytes: 200 << 30, AvailableBytes: 10 << 30},
		},
		sensors: []metrics.Sensor{
			{Label: "coretemp Core 0", Temperature: 45},
			{Label: "coretemp Core 1", Temperature: 47.5},
		},
	}
}

func (s *fakeSource) SystemIdentity(context.Context) (metrics.Identity, error) {
	return s.id, nil
}

func (s *fakeSource) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return nil
}

func (s *fakeSource) Memory() metrics.Memory { return s.memory }
func (s *fakeSource) Disks() []metrics.Disk { return s.disks }
func (s *fakeSource) Sensors() []metrics.Sensor { return s.sensors }

type fakeStore struct {
	mu     sync.Mutex
	rows   []record.Record
	failOn map[record.Kind]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failOn: map[record.Kind]bool{}}
}

func (s *fakeStore) EnsureSchema(context.Context) error { return nil }

func (s *fakeStore) HostExists(_ context.Context, hostname string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if sys, ok := r.(record.SysRecord); ok && sys.Hostname == hostname {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Write(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[rec.Kind()] {
		return errors.New().Wrap(errors.ErrStorage, errors.New().New(errors.ErrInternal))
	}
	s.rows = append(s.rows, rec)
	return nil
}

func (s *fakeStore) count(kind record.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.Kind() == kind {
			n++
		}
	}
	return n
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
