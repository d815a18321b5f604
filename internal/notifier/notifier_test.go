package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afdelacruz/stock-finder/internal/model"
)

func sampleResults() []model.ScanResult {
	d := func(m time.Month, day int) time.Time { return time.Date(2023, m, day, 0, 0, 0, 0, time.UTC) }
	return []model.ScanResult{
		{Ticker: "SMCI", GainPct: 1450, LowDate: d(1, 3), LowPrice: 80, HighDate: d(12, 1), HighPrice: 1240, CurrentPrice: 900, DaysToPeak: 230},
		{Ticker: "NVDA", GainPct: 720, LowDate: d(1, 5), LowPrice: 14, HighDate: d(11, 2), HighPrice: 114.8, CurrentPrice: 110, DaysToPeak: 210},
		{Ticker: "CELH", GainPct: 510, LowDate: d(2, 1), LowPrice: 10, HighDate: d(10, 2), HighPrice: 61, CurrentPrice: 40, DaysToPeak: 170},
	}
}

func TestFormatScanSummary(t *testing.T) {
	msg := FormatScanSummary(ScanReport{
		RunID:      "abc-123",
		Scanned:    500,
		Errors:     2,
		MinGainPct: 500,
		Elapsed:    95 * time.Second,
		Results:    sampleResults(),
	}, 2)

	assert.Contains(t, msg, "Scanned: 500 tickers in 1m35s")
	assert.Contains(t, msg, "Found: 3 | Errors: 2")
	assert.Contains(t, msg, "<code>abc-123</code>")
	assert.Contains(t, msg, "<b>SMCI</b> +1450%")
	assert.Contains(t, msg, "<b>NVDA</b>")
	assert.NotContains(t, msg, "CELH")
	assert.Contains(t, msg, "and 1 more")
}

func TestFormatTopGainers_Empty(t *testing.T) {
	assert.Contains(t, FormatTopGainers("Top", nil, 5), "(none)")
}

func TestFormatSnapshot(t *testing.T) {
	g := sampleResults()[0]
	msg := FormatSnapshot(&model.TickerSnapshot{
		Ticker: "SMCI", CurrentPrice: 900, MA200: 750, DailyRSI: 61.2, WeeklyRSI: 70.4,
		High52w: 1240, Low52w: 80, Position52w: 0.7, Gain: &g,
	})
	assert.Contains(t, msg, "MA200: 750.00 (+20.0%)")
	assert.Contains(t, msg, "Max gain:</b> +1450.0%")
	assert.Contains(t, msg, "position 70%")

	msg = FormatSnapshot(&model.TickerSnapshot{Ticker: "FLAT"})
	assert.Contains(t, msg, "No rising window")
}

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"rune boundary", "ééééééé", 11, "ééé\n..."},
		{"line break", "line one\n<b>line two</b>", 20, "line one\n..."},
		{"open tag", "abc <b>bold</b>", 10, "abc \n..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateMessage(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), tt.limit)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSend_TruncatesLongMultibyteText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), strings.Repeat("📈", 2000)))
	assert.LessOrEqual(t, len(got["text"]), maxMessageLen)
	assert.True(t, utf8.ValidString(got["text"]))
	assert.True(t, strings.HasSuffix(got["text"], "\n..."))
}

func TestSendWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	n := newTestNotifier(srv)

	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, -10)
	err := n.SendWithRetry(context.Background(), "hi", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var polled int
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			polled++
			first := polled == 1
			mu.Unlock()
			if first {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /top "}},{"update_id":8}]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			cancel()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /top"}, replies)
}
