package record

import "fmt"

type schema struct {
	table   string
	columns []string
	types   []string
	indexed string
	timed   bool
	decode  func(Scanner) (Record, error)
}

var schemas = [...]schema{
	KindSys: {
		table:   "sys",
		columns: []string{"os", "osversion", "hostname"},
		types:   []string{"TEXT", "TEXT", "TEXT"},
		indexed: "hostname",
		decode: func(row Scanner) (Record, error) {
			var r SysRecord
			if err := row.Scan(&r.OS, &r.OSVersion, &r.Hostname); err != nil {
				return nil, err
			}
			return r, nil
		},
	},
	KindComponent: {
		table:   "component",
		columns: []string{"timestamp", "label", "temp"},
		types:   []string{"TEXT", "TEXT", "REAL"},
		indexed: "timestamp",
		timed:   true,
		decode: func(row Scanner) (Record, error) {
			var r ComponentRecord
			if err := row.Scan(&r.Timestamp, &r.Label, &r.Temperature); err != nil {
				return nil, err
			}
			return r, nil
		},
	},
	KindDisk: {
		table:   "disk",
		columns: []string{"timestamp", "name", "total", "available"},
		types:   []string{"TEXT", "TEXT", "INTEGER", "INTEGER"},
		indexed: "timestamp",
		timed:   true,
		decode: func(row Scanner) (Record, error) {
			var (
				r                DiskRecord
				total, available int64
				err              error
			)
			if err = row.Scan(&r.Timestamp, &r.Name, &total, &available); err != nil {
				return nil, err
			}
			if r.TotalBytes, err = fromInt64(total); err != nil {
				return nil, err
			}
			if r.AvailableBytes, err = fromInt64(available); err != nil {
				return nil, err
			}
			return r, nil
		},
	},
	KindRam: {
		table:   "ram",
		columns: []string{"timestamp", "total_memory", "used_memory", "total_swap", "used_swap"},
		types:   []string{"TEXT", "INTEGER", "INTEGER", "INTEGER", "INTEGER"},
		indexed: "timestamp",
		timed:   true,
		decode: func(row Scanner) (Record, error) {
			var (
				r   RamRecord
				raw [4]int64
			)
			if err := row.Scan(&r.Timestamp, &raw[0], &raw[1], &raw[2], &raw[3]); err != nil {
				return nil, err
			}
			dst := [4]*uint64{&r.TotalMemory, &r.UsedMemory, &r.TotalSwap, &r.UsedSwap}
			for i, v := range raw {
				u, err := fromInt64(v)
				if err != nil {
					return nil, err
				}
				*dst[i] = u
			}
			return r, nil
		},
	},
}

// SysRecord identifies the host. One row exists per hostname.
type SysRecord struct {
	OS        string `json:"os" yaml:"os"`
	OSVersion string `json:"os_version" yaml:"os_version"`
	Hostname  string `json:"hostname" yaml:"hostname"`
}

func (SysRecord) Kind() Kind { return KindSys }

func (r SysRecord) Values() []any {
	return []any{r.OS, r.OSVersion, r.Hostname}
}

func (r SysRecord) String() string {
	return fmt.Sprintf("sys: os=%s version=%s hostname=%s", r.OS, r.OSVersion, r.Hostname)
}

func (SysRecord) sealed() {}

// ComponentRecord is one thermal sensor reading in degrees Celsius.
type ComponentRecord struct {
	Timestamp   string  `json:"timestamp" yaml:"timestamp"`
	Label       string  `json:"label" yaml:"label"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

func (ComponentRecord) Kind() Kind { return KindComponent }

func (r ComponentRecord) Values() []any {
	return []any{r.Timestamp, r.Label, r.Temperature}
}

func (r ComponentRecord) String() string {
	return fmt.Sprintf("[%s] component: %s %.1f°C", r.Timestamp, r.Label, r.Temperature)
}

func (ComponentRecord) sealed() {}

// DiskRecord is the capacity of one disk.
type DiskRecord struct {
	Timestamp      string `json:"timestamp" yaml:"timestamp"`
	Name           string `json:"name" yaml:"name"`
	TotalBytes     uint64 `json:"total_bytes" yaml:"total_bytes"`
	AvailableBytes uint64 `json:"available_bytes" yaml:"available_bytes"`
}

func (DiskRecord) Kind() Kind { return KindDisk }

func (r DiskRecord) Values() []any {
	return []any{r.Timestamp, r.Name, toInt64(r.TotalBytes), toInt64(r.AvailableBytes)}
}

func (r DiskRecord) String() string {
	return fmt.Sprintf("[%s] disk: %s available=%d total=%d bytes", r.Timestamp, r.Name, r.AvailableBytes, r.TotalBytes)
}

func (DiskRecord) sealed() {}

// RamRecord is the memory and swap usage of one tick, in bytes.
type RamRecord struct {
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	TotalMemory uint64 `json:"total_memory" yaml:"total_memory"`
	UsedMemory  uint64 `json:"used_memory" yaml:"used_memory"`
	TotalSwap   uint64 `json:"total_swap" yaml:"total_swap"`
	UsedSwap    uint64 `json:"used_swap" yaml:"used_swap"`
}

func (RamRecord) Kind() Kind { return KindRam }

func (r RamRecord) Values() []any {
	return []any{r.Timestamp, toInt64(r.TotalMemory), toInt64(r.UsedMemory), toInt64(r.TotalSwap), toInt64(r.UsedSwap)}
}

func (r RamRecord) String() string {
	return fmt.Sprintf("[%s] ram: memory=%d/%d swap=%d/%d bytes", r.Timestamp, r.UsedMemory, r.TotalMemory, r.UsedSwap, r.TotalSwap)
}

func (RamRecord) sealed() {}

// TimestampOf returns the timestamp of a timed record and false for SysRecord.
func TimestampOf(r Record) (string, bool) {
	switch v := r.(type) {
	case ComponentRecord:
		return v.Timestamp, true
	case DiskRecord:
		return v.Timestamp, true
	case RamRecord:
		return v.Timestamp, true
	default:
		return "", false
	}
}
