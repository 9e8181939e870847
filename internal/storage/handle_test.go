package storage_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/record"
	"codeberg.org/mutker/sysrec/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	t1 = "2024-05-01 10:00:00"
	t2 = "2024-05-01 10:00:10"
	t3 = "2024-05-01 10:00:20"
)

func openStore(t *testing.T) *storage.Handle {
	t.Helper()

	h, err := storage.Open(storage.Config{DBPath: filepath.Join(t.TempDir(), "data", "sysrec.db")})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	require.NoError(t, h.EnsureSchema(context.Background()))

	return h
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := storage.Open(storage.Config{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, storage.ErrInvalidDBPath))
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	h := openStore(t)
	ctx := context.Background()

	require.NoError(t, h.EnsureSchema(ctx))

	for _, kind := range record.Kinds {
		exists, err := h.TableExists(ctx, kind.Table())
		require.NoError(t, err)
		assert.True(t, exists, kind.Table())
	}
}

func TestEnsureSchemaContinuesAfterFailure(t *testing.T) {
	h, err := storage.Open(storage.Config{DBPath: filepath.Join(t.TempDir(), "sysrec.db")})
	require.NoError(t, err)
	defer h.Close()
	ctx := context.Background()

	// A table squatting on the disk index name makes the disk DDL fail.
	err = h.WithConnection(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "CREATE TABLE idx_disk_timestamp (x INTEGER)")
		return err
	})
	require.NoError(t, err)

	err = h.EnsureSchema(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, storage.ErrSchemaInit))

	for _, table := range []string{"sys", "component", "ram"} {
		exists, err := h.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestWriteAndQueryAll(t *testing.T) {
	h := openStore(t)
	ctx := context.Background()

	samples := []record.Record{
		record.SysRecord{OS: "debian", OSVersion: "12", Hostname: "box"},
		record.ComponentRecord{Timestamp: t1, Label: "coretemp Package id 0", Temperature: 48.5},
		record.ComponentRecord{Timestamp: t1, Label: "acpitz", Temperature: 27.8},
		record.DiskRecord{Timestamp: t1, Name: "/dev/nvme0n1p2", TotalBytes: 500 << 30, AvailableBytes: 120 << 30},
		record.RamRecord{Timestamp: t1, TotalMemory: 16 << 30, UsedMemory: 6 << 30, TotalSwap: 2 << 30, UsedSwap: 0},
	}
	for _, s := range samples {
		require.NoError(t, h.Write(ctx, s))
	}

	sys, err := h.Query(ctx, record.QueryAll(record.KindSys))
	require.NoError(t, err)
	assert.Equal(t, samples[:1], sys)

	components, err := h.Query(ctx, record.QueryAll(record.KindComponent))
	require.NoError(t, err)
	assert.Equal(t, samples[1:3], components, "rows come back in insertion order")

	disks, err := h.Query(ctx, record.QueryAll(record.KindDisk))
	require.NoError(t, err)
	assert.Equal(t, samples[3:4], disks)

	ram, err := h.Query(ctx, record.QueryAll(record.KindRam))
	require.NoError(t, err)
	assert.Equal(t, samples[4:], ram)
}

func seedRam(t *testing.T, h *storage.Handle) {
	t.Helper()

	for i, ts := range []string{t1, t2, t3} {
		require.NoError(t, h.Write(context.Background(), record.RamRecord{Timestamp: ts, TotalMemory: 100, UsedMemory: uint64(i)}))
	}
}

func TestQueryByRangeInclusive(t *testing.T) {
	h := openStore(t)
	seedRam(t, h)

	q, err := record.QueryByRange(record.KindRam, t1, t2)
	require.NoError(t, err)

	rows, err := h.Query(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		ts, _ := record.TimestampOf(r)
		got = append(got, ts)
	}
	assert.Equal(t, []string{t1, t2}, got)
}

func TestQueryByRangeInverted(t *testing.T) {
	h := openStore(t)
	seedRam(t, h)

	q, err := record.QueryByRange(record.KindRam, t3, t1)
	require.NoError(t, err)

	rows, err := h.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHostExists(t *testing.T) {
	h := openStore(t)
	ctx := context.Background()

	exists, err := h.HostExists(ctx, "box")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, h.Write(ctx, record.SysRecord{OS: "debian", OSVersion: "12", Hostname: "box"}))

	exists, err = h.HostExists(ctx, "box")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestQueryDecodeMismatch(t *testing.T) {
	h := openStore(t)
	ctx := context.Background()
	seedRam(t, h)

	// Selecting a short column list for the ram kind cannot be decoded.
	_, err := h.Query(ctx, record.Query{Kind: record.KindRam, SQL: "SELECT timestamp, total_memory FROM ram"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDecode))
}

func TestClosedHandle(t *testing.T) {
	h := openStore(t)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	err := h.Write(context.Background(), record.RamRecord{Timestamp: t1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, storage.ErrStorage))
	assert.True(t, errors.HasCode(err, storage.ErrClosed))
}

func TestConcurrentAccess(t *testing.T) {
	h := openStore(t)
	ctx := context.Background()

	const writers, perWriter = 4, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, h.Write(ctx, record.DiskRecord{Timestamp: t1, Name: fmt.Sprintf("disk%d-%d", w, i)}))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := h.Query(ctx, record.QueryAll(record.KindDisk))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	n, err := h.Count(ctx, record.KindDisk)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, n)
}
