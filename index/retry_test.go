package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryFixed_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryFixed(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryFixed_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryFixed(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryFixed_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := RetryFixed(context.Background(), operation, 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr, "should carry the last error")
	assert.ErrorIs(t, err, ErrTrialsExhausted)
	assert.Equal(t, 3, attempts, "should attempt exactly trials times")
}

func TestRetryFixed_Unbounded(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 25 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryFixed(context.Background(), operation, UnboundedTrials, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 25, attempts)
}

func TestRetryFixed_ZeroTrials(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryFixed(context.Background(), operation, 0, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTrialsExhausted)
	assert.Equal(t, 0, attempts, "should not attempt with zero trials")
}

func TestRetryFixed_Permanent(t *testing.T) {
	attempts := 0
	badRequest := errors.New("bad request")
	operation := func() error {
		attempts++
		return Permanent(badRequest)
	}

	err := RetryFixed(context.Background(), operation, UnboundedTrials, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, badRequest)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts, "permanent errors are not retried")
}

func TestRetryFixed_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryFixed(ctx, operation, UnboundedTrials, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "should return context.Canceled")
	assert.Equal(t, 2, attempts, "should stop when context is canceled")
}

func TestRetryFixed_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	operation := func() error {
		attempts++
		time.Sleep(30 * time.Millisecond)
		return errors.New("error")
	}

	err := RetryFixed(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "should return context.DeadlineExceeded")
	assert.LessOrEqual(t, attempts, 3, "should stop when context times out")
}

func TestRetryFixed_FixedDelay(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := RetryFixed(context.Background(), operation, 5, 20*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delays, 3, "should have 3 delays")

	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 20*time.Millisecond, "each delay should be at least the fixed delay")
		assert.Less(t, d, 200*time.Millisecond, "delay should not grow")
	}
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))
}
