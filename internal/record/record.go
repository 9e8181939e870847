// Package record maps typed host metric samples to storage rows and back.
//
// The set of record kinds is closed. Each kind is described by one entry in
// the schemas table (table name, columns, decoder) so that writing, querying
// and decoding share a single code path for all four kinds.
package record

import (
	"fmt"
	"math"
	"strings"
	"time"

	"codeberg.org/mutker/sysrec/internal/errors"
)

// TimestampLayout is the stored and wire format of every timestamp. Its fixed
// width keeps lexicographic and chronological order identical.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind identifies one of the four record shapes.
type Kind int

const (
	KindSys Kind = iota
	KindComponent
	KindDisk
	KindRam
)

// Kinds lists every record kind in menu order.
var Kinds = []Kind{KindSys, KindComponent, KindDisk, KindRam}

// Record is a single typed sample. The interface is sealed; only the four
// types in this package implement it.
type Record interface {
	Kind() Kind
	// Values returns the column values in the order of the kind's Columns.
	Values() []any
	String() string
	sealed()
}

// Query is a parameterised selector for one kind.
type Query struct {
	Kind Kind
	SQL  string
	Args []any
}

// Timestamp formats t in the local time zone with second precision.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return schemas[k].table
}

// Table returns the storage table of the kind.
func (k Kind) Table() string {
	return schemas[k].table
}

// Columns returns the data columns of the kind, excluding the identity column.
func (k Kind) Columns() []string {
	return schemas[k].columns
}

// Timed reports whether rows of this kind carry a timestamp.
func (k Kind) Timed() bool {
	return k.valid() && schemas[k].timed
}

func (k Kind) valid() bool {
	return k >= KindSys && k <= KindRam
}

// ParseKind resolves a table name to its kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(name, schemas[k].table) {
			return k, nil
		}
	}

	return 0, errors.New().WithData(errors.ErrUnknownKind, name)
}

// CreateTableSQL returns the DDL for the kind's table and its index.
func CreateTableSQL(k Kind) string {
	s := schemas[k]
	defs := make([]string, 0, len(s.columns)+1)
	defs = append(defs, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	for i, col := range s.columns {
		defs = append(defs, col+" "+s.types[i]+" NOT NULL")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);\nCREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);",
		s.table, strings.Join(defs, ",\n    "), s.table, s.indexed, s.table, s.indexed)
}

// InsertSQL returns the statement inserting one row of the kind.
func InsertSQL(k Kind) string {
	s := schemas[k]
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.columns)), ", ")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(s.columns, ", "), placeholders)
}

// QueryAll selects every row of the kind in insertion order.
func QueryAll(k Kind) Query {
	return Query{
		Kind: k,
		SQL:  selectSQL(k, ""),
	}
}

// QueryByRange selects the rows of the kind whose timestamp lies between
// start and end inclusive. The bounds are compared as text.
func QueryByRange(k Kind, start, end string) (Query, error) {
	if !k.Timed() {
		return Query{}, errors.New().WithData(errors.ErrRangeUnsupported, k.String())
	}

	return Query{
		Kind: k,
		SQL:  selectSQL(k, "WHERE timestamp BETWEEN ? AND ?"),
		Args: []any{start, end},
	}, nil
}

func selectSQL(k Kind, where string) string {
	s := schemas[k]
	sql := "SELECT " + strings.Join(s.columns, ", ") + " FROM " + s.table
	if where != "" {
		sql += " " + where
	}

	return sql + " ORDER BY id"
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Decode reconstructs a record of kind k from one row with the given column
// names. A column count or type mismatch yields a decode error.
func Decode(k Kind, columns []string, row Scanner) (Record, error) {
	errFactory := errors.New()
	if !k.valid() {
		return nil, errFactory.WithData(errors.ErrUnknownKind, int(k))
	}

	s := schemas[k]
	if len(columns) != len(s.columns) {
		return nil, errFactory.WithData(errors.ErrDecode, struct {
			Table    string
			Expected int
			Got      int
		}{
			Table:    s.table,
			Expected: len(s.columns),
			Got:      len(columns),
		})
	}

	rec, err := s.decode(row)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrDecode, fmt.Errorf("%s: %w", s.table, err))
	}

	return rec, nil
}

// toInt64 clamps a byte count into the INTEGER column range.
func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// fromInt64 maps a stored INTEGER back to a byte count.
func fromInt64(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("negative byte count %d", v)
	}

	return uint64(v), nil
}
