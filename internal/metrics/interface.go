package metrics

import "context"

// Source produces the host samples consumed by the sampling engine. Refresh
// gathers fresh readings; the getters return the readings of the last Refresh.
type Source interface {
	SystemIdentity(ctx context.Context) (Identity, error)
	Refresh(ctx context.Context) error
	Memory() Memory
	Disks() []Disk
	Sensors() []Sensor
}

// SensorReader supplies additional thermal sensors, such as GPUs.
type SensorReader interface {
	Temperatures(ctx context.Context) ([]Sensor, error)
}

// Domain value objects
type Identity struct {
	OS        string
	OSVersion string
	Hostname  string
}

type Memory struct {
	TotalMemory uint64
	UsedMemory  uint64
	TotalSwap   uint64
	UsedSwap    uint64
}

type Disk struct {
	Name           string
	TotalBytes     uint64
	AvailableBytes uint64
}

type Sensor struct {
	Label       string
	Temperature float64
}
