package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUntilDone(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	blocking := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		err := runUntilDone(ctx, logger, []runner{
			{name: "scheduler", start: blocking},
			{name: "api server", start: blocking},
		})
		assert.NoError(t, err)
	})

	t.Run("runner failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		boom := errors.New("address already in use")
		err := runUntilDone(ctx, logger, []runner{
			{name: "scheduler", start: blocking},
			{name: "api server", start: func(context.Context) error { return boom }},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "api server error")
	})

	t.Run("runner returning context canceled is not a failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := runUntilDone(ctx, logger, []runner{
			{name: "scheduler", start: func(context.Context) error {
				cancel()
				return context.Canceled
			}},
		})
		assert.NoError(t, err)
	})
}
