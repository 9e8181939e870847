package errors_test

import (
	"database/sql"
	"fmt"
	"testing"

	"codeberg.org/mutker/sysrec/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "No range given", errFactory.New(errors.ErrNoRange).Error())
	assert.Equal(t, "Storage operation failed: sql: no rows in result set",
		errFactory.Wrap(errors.ErrStorage, sql.ErrNoRows).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrInput, "custom").Error())
	assert.Equal(t, "unregistered_code", errFactory.New(errors.ErrorCode("unregistered_code")).Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.Wrap(errors.ErrDecode, sql.ErrNoRows)
	outer := errFactory.Wrap(errors.ErrStorage, fmt.Errorf("query ram: %w", inner))

	assert.True(t, errors.HasCode(outer, errors.ErrStorage))
	assert.True(t, errors.HasCode(outer, errors.ErrDecode))
	assert.False(t, errors.HasCode(outer, errors.ErrInput))
	assert.False(t, errors.HasCode(sql.ErrNoRows, errors.ErrStorage))
	assert.True(t, errors.Is(outer, sql.ErrNoRows))
}

func TestCodeOf(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, errors.ErrOneDatetime, errors.CodeOf(errFactory.New(errors.ErrOneDatetime)))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(sql.ErrConnDone))
}

func TestIsInput(t *testing.T) {
	errFactory := errors.New()

	assert.True(t, errors.IsInput(errFactory.New(errors.ErrTooManyDatetimes)))
	assert.True(t, errors.IsInput(fmt.Errorf("wrapped: %w", errFactory.New(errors.ErrNoRange))))
	assert.False(t, errors.IsInput(errFactory.New(errors.ErrStorage)))
	assert.False(t, errors.IsInput(sql.ErrConnDone))
}

type lockErr struct{}

func (lockErr) Error() string { return "locked" }

func (lockErr) Code() errors.ErrorCode { return errors.ErrAlreadyRunning }

func TestForeignCodedError(t *testing.T) {
	err := fmt.Errorf("start: %w", lockErr{})

	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(err))
	assert.False(t, errors.IsInput(err))
}
