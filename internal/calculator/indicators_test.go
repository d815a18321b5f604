package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	_, err = SMA([]float64{1, 2}, 3)
	assert.Error(t, err)

	_, err = SMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestRSI(t *testing.T) {
	v, err := RSI([]float64{1, 2, 3}, 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v, "insufficient data defaults to neutral")

	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	v, err = RSI(rising, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(100 - i)
	}
	v, err = RSI(falling, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestRange(t *testing.T) {
	s := closesSeries(5, 9, 3, 7)

	high, low, err := Range(s, 0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 3.0, low)

	high, low, err = Range(s, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, high)
	assert.Equal(t, 7.0, low)

	_, _, err = Range(closesSeries(), 10)
	assert.Error(t, err)
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		current, high, low float64
		want               float64
	}{
		{50, 100, 0, 0.5},
		{150, 100, 0, 1},
		{-5, 100, 0, 0},
		{10, 10, 10, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.current, tt.high, tt.low)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := RangePosition(1, 0, 10)
	assert.Error(t, err)
}
