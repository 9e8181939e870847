// Package query is the foreground read path over recorded samples.
package query

import (
	"context"
	"regexp"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/record"
)

// datetimePattern matches one timestamp in record.TimestampLayout.
var datetimePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// Reader is the read side of the storage handle.
type Reader interface {
	Query(ctx context.Context, q record.Query) ([]record.Record, error)
}

type Service struct {
	store Reader
}

func NewService(store Reader) *Service {
	return &Service{store: store}
}

// All returns every stored record of kind in insertion order.
func (s *Service) All(ctx context.Context, kind record.Kind) ([]record.Record, error) {
	return s.run(ctx, record.QueryAll(kind))
}

// ByRange returns the records of kind stamped between start and end
// inclusive. An inverted range returns no records.
func (s *Service) ByRange(ctx context.Context, kind record.Kind, start, end string) ([]record.Record, error) {
	q, err := record.QueryByRange(kind, start, end)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, q)
}

func (s *Service) run(ctx context.Context, q record.Query) ([]record.Record, error) {
	rows, err := s.store.Query(ctx, q)
	if err != nil {
		logger.ErrorWithCode(err).Str("kind", q.Kind.String()).Msg("Query failed")
		return nil, err
	}

	logger.Debug().Str("kind", q.Kind.String()).Int("rows", len(rows)).Msg("Query complete")

	return rows, nil
}

// ParseRange extracts exactly two timestamps from free-form text, in the order
// they appear. Their order relative to each other is not checked.
func ParseRange(text string) (start, end string, err error) {
	errFactory := errors.New()

	matches := datetimePattern.FindAllString(text, -1)
	switch len(matches) {
	case 0:
		return "", "", errFactory.New(errors.ErrNoRange)
	case 1:
		return "", "", errFactory.New(errors.ErrOneDatetime)
	case 2:
		return matches[0], matches[1], nil
	default:
		return "", "", errFactory.WithData(errors.ErrTooManyDatetimes, len(matches))
	}
}
