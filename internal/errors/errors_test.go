package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		assert.EqualError(t, wrapped, "wrapped: base error")
		assert.True(t, errors.Is(wrapped, baseErr))
	})

	t.Run("wrap nil error", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "wrapped"))
	})
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrNotFound, "event %s", "abc")
	assert.EqualError(t, wrapped, "event abc: not found")
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.Nil(t, Wrapf(nil, "event %s", "abc"))
}

func TestSentinelChains(t *testing.T) {
	eventNotFound := Wrap(ErrNotFound, "event not found")
	deeper := Wrap(eventNotFound, "failed to load event")

	assert.True(t, Is(deeper, ErrNotFound))
	assert.True(t, Is(deeper, eventNotFound))
	assert.False(t, Is(deeper, ErrConflict))
}

type statusError struct{ code int }

func (e statusError) Error() string { return "status error" }

func TestAs(t *testing.T) {
	err := Wrap(statusError{code: 500}, "delivery")

	var target statusError
	assert.True(t, As(err, &target))
	assert.Equal(t, 500, target.code)
}

func TestJoin(t *testing.T) {
	assert.Nil(t, Join(nil, nil))

	joined := Join(ErrConflict, nil, ErrNotFound)
	assert.True(t, Is(joined, ErrConflict))
	assert.True(t, Is(joined, ErrNotFound))
}
