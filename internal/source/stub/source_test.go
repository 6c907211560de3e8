package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source"
)

func TestStaticSource(t *testing.T) {
	m, err := NewStaticSource().FetchMetrics(context.Background(), "0xabc", "https://api.b2s.xyz")
	require.NoError(t, err)
	assert.Equal(t, domain.Metrics{TotalVolume: 15200000, ActiveUsers: 892, TotalStaked: 2300000, Transactions24h: 1247}, m)
}

func TestStaticSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticSource().FetchMetrics(ctx, "0xabc", "")

	var fe *source.FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptedSource(t *testing.T) {
	boom := errors.New("boom")
	src := NewScriptedSource(
		Step{Metrics: domain.Metrics{ActiveUsers: 1}},
		Step{Err: boom},
	)

	m, err := src.FetchMetrics(context.Background(), "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ActiveUsers)

	_, err = src.FetchMetrics(context.Background(), "0xabc", "")
	assert.ErrorIs(t, err, boom)

	_, err = src.FetchMetrics(context.Background(), "0xabc", "")
	assert.ErrorIs(t, err, ErrScriptExhausted)

	src.Push(Step{Metrics: domain.Metrics{ActiveUsers: 2}})
	m, err = src.FetchMetrics(context.Background(), "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ActiveUsers)

	assert.Equal(t, 4, src.CallCount())
	assert.Len(t, src.Calls, 4)
}

func TestScriptedSource_BlockHonoursContext(t *testing.T) {
	src := NewScriptedSource(Step{Block: make(chan struct{})})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.FetchMetrics(ctx, "0xabc", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
