package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afdelacruz/stock-finder/internal/model"
)

func openTest(t *testing.T) *SQLRecorder {
	t.Helper()
	r, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func result(ticker string, gain float64) model.ScanResult {
	return model.ScanResult{
		Ticker:       ticker,
		GainPct:      gain,
		LowDate:      time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC),
		LowPrice:     10,
		HighDate:     time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		HighPrice:    10 * (1 + gain/100),
		CurrentPrice: 42,
		DaysToPeak:   360,
	}
}

func TestSQLRecorder_RunLifecycle(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	run := &ScanRun{MinGainPct: 500, LookbackYears: 3, Universe: "demo", TickerCount: 3}
	require.NoError(t, r.StartRun(ctx, run))
	assert.NotZero(t, run.ID)
	assert.NotEqual(t, uuid.Nil, run.RunID)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, r.AddResult(ctx, run.ID, result("AAA", 620)))
	require.NoError(t, r.AddResult(ctx, run.ID, result("BBB", 910)))
	require.NoError(t, r.CompleteRun(ctx, run.ID, StatusCompleted))

	runs, err := r.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, got.ResultsCount)
	assert.Equal(t, 3, got.TickerCount)
	assert.Equal(t, "demo", got.Universe)
	assert.False(t, got.CompletedAt.IsZero())

	results, err := r.ListResults(ctx, ResultQuery{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "BBB", results[0].Ticker)
	assert.Equal(t, run.ID, results[0].ScanRunID)
	want := result("BBB", 910)
	assert.Equal(t, want, results[0].ScanResult)
}

func TestSQLRecorder_ResultFilters(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	first := &ScanRun{MinGainPct: 300, LookbackYears: 3}
	second := &ScanRun{MinGainPct: 300, LookbackYears: 3}
	require.NoError(t, r.StartRun(ctx, first))
	require.NoError(t, r.StartRun(ctx, second))
	require.NoError(t, r.AddResult(ctx, first.ID, result("AAA", 350)))
	require.NoError(t, r.AddResult(ctx, first.ID, result("BBB", 800)))
	require.NoError(t, r.AddResult(ctx, second.ID, result("AAA", 400)))
	require.NoError(t, r.AddResult(ctx, second.ID, result("CCC", 500)))

	all, err := r.ListResults(ctx, ResultQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	big, err := r.ListResults(ctx, ResultQuery{MinGain: 450})
	require.NoError(t, err)
	require.Len(t, big, 2)
	assert.Equal(t, "BBB", big[0].Ticker)
	assert.Equal(t, "CCC", big[1].Ticker)

	limited, err := r.ListResults(ctx, ResultQuery{RunID: second.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "CCC", limited[0].Ticker)

	top, err := r.TopGainers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"BBB", "CCC", "AAA"}, []string{top[0].Ticker, top[1].Ticker, top[2].Ticker})
	assert.InDelta(t, 400, top[2].GainPct, 1e-9, "best result per ticker")

	top, err = r.TopGainers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	runs, err := r.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestSQLRecorder_CompleteUnknownRun(t *testing.T) {
	r := openTest(t)
	assert.Error(t, r.CompleteRun(context.Background(), 999, StatusCompleted))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	ctx := context.Background()
	assert.NoError(t, r.StartRun(ctx, &ScanRun{}))
	assert.NoError(t, r.AddResult(ctx, 1, result("AAA", 600)))
	res, err := r.ListResults(ctx, ResultQuery{})
	assert.NoError(t, err)
	assert.Empty(t, res)
	assert.NoError(t, r.Close())
}
