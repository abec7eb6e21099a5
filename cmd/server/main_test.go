package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_WaitsForShutdownSteps(t *testing.T) {
	t.Parallel()

	stopped := make(chan struct{})
	start := func() error {
		<-stopped
		return nil
	}

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, delay time.Duration) func(context.Context) error {
		return func(ctx context.Context) error {
			time.Sleep(delay)
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM

	err := serve(start, sig, time.Second,
		shutdownStep{"jobs", record("jobs", 0)},
		shutdownStep{"server", func(ctx context.Context) error {
			close(stopped)
			return record("server", 0)(ctx)
		}},
		shutdownStep{"tracing", record("tracing", 50*time.Millisecond)},
	)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"jobs", "server", "tracing"}, order)
}

func TestServe_StepErrorsDoNotStopLaterSteps(t *testing.T) {
	t.Parallel()

	stopped := make(chan struct{})
	tracingFlushed := false

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGINT

	err := serve(func() error { <-stopped; return nil }, sig, time.Second,
		shutdownStep{"server", func(context.Context) error {
			close(stopped)
			return errors.New("close db: already closed")
		}},
		shutdownStep{"tracing", func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			tracingFlushed = hasDeadline
			return nil
		}},
	)
	require.NoError(t, err)
	assert.True(t, tracingFlushed)
}

func TestServe_StartError(t *testing.T) {
	t.Parallel()

	err := serve(func() error { return errors.New("address in use") }, make(chan os.Signal), time.Second)
	assert.EqualError(t, err, "address in use")
}
