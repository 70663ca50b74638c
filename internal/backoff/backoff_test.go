package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayWaitsAtLeastBase(t *testing.T) {
	d := Delayer{Base: 20 * time.Millisecond, Jitter: 10 * time.Millisecond}

	start := time.Now()
	err := d.Delay(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDelayCanceledContext(t *testing.T) {
	d := Delayer{Base: 10 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := d.Delay(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		failures    int // attempts that fail before succeeding
		maxRetries  int
		wantRetries int
		wantErr     bool
	}{
		{name: "first attempt succeeds", failures: 0, maxRetries: 3, wantRetries: 0},
		{name: "succeeds on third attempt", failures: 2, maxRetries: 3, wantRetries: 2},
		{name: "exhausts retries", failures: 10, maxRetries: 2, wantRetries: 2, wantErr: true},
		{name: "no retries allowed", failures: 1, maxRetries: 0, wantRetries: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Delayer{Base: time.Millisecond}
			calls := 0
			retries, err := d.Execute(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return boom
				}
				return nil
			}, tt.maxRetries)

			assert.Equal(t, tt.wantRetries, retries)
			if tt.wantErr {
				assert.ErrorIs(t, err, boom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecuteCanceledBetweenAttempts(t *testing.T) {
	d := Delayer{Base: 10 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Execute(ctx, func() error { return errors.New("boom") }, 3)
	assert.ErrorIs(t, err, context.Canceled)
}
