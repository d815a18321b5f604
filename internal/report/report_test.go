package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afdelacruz/stock-finder/internal/model"
)

func init() {
	color.NoColor = true
}

func results() []model.ScanResult {
	return []model.ScanResult{
		{
			Ticker: "SMCI", GainPct: 1200, LowDate: time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC), LowPrice: 40,
			HighDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), HighPrice: 520, CurrentPrice: 390, DaysToPeak: 360,
		},
		{
			Ticker: "CELH", GainPct: 600, LowDate: time.Date(2022, 5, 2, 0, 0, 0, 0, time.UTC), LowPrice: 10,
			HighDate: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), HighPrice: 70, CurrentPrice: 70, DaysToPeak: 400,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatTable, "TABLE": FormatTable, "csv": FormatCSV, " json ": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, results()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TICKER")
	assert.Contains(t, lines[1], "SMCI")
	assert.Contains(t, lines[1], "1200.0%")
	assert.Contains(t, lines[1], "2022-10-03")
	assert.Contains(t, lines[1], "25.0%", "off high")
	assert.Contains(t, lines[2], "CELH")
	assert.Equal(t, "2 result(s)", lines[3])

	buf.Reset()
	require.NoError(t, WriteTable(&buf, nil))
	assert.Equal(t, "No results.\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, results()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, csvCols, recs[0])
	assert.Equal(t, []string{"SMCI", "1200.0000", "2022-10-03", "40.0000", "2024-03-08", "520.0000", "390.0000", "360", "25.0000"}, recs[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, results()))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "SMCI", got[0]["ticker"])
	assert.Equal(t, "2024-03-08", got[0]["high_date"])
	assert.Equal(t, 0.0, got[1]["off_high_pct"])
}

func TestWriteSnapshot(t *testing.T) {
	g := results()[0]
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, &model.TickerSnapshot{
		Ticker: "SMCI", CurrentPrice: 390, MA200: 300, Bars: 750, Position52w: 0.5, Gain: &g,
	}))
	out := buf.String()
	assert.Contains(t, out, "SMCI\n")
	assert.Contains(t, out, "(+30.0%)")
	assert.Contains(t, out, "1200.0%")
	assert.Contains(t, out, "40.00 on 2022-10-03")

	buf.Reset()
	require.NoError(t, WriteSnapshot(&buf, &model.TickerSnapshot{Ticker: "FLAT"}))
	assert.Contains(t, buf.String(), "No rising window")
}
