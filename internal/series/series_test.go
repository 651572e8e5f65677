package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

func candleAt(minute int, close, volume float64) models.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Candle{
		OpenTime: base.Add(time.Duration(minute) * time.Minute),
		Close:    close,
		Volume:   volume,
	}
}

func TestNewSortsAscending(t *testing.T) {
	// Deliberately out of order.
	candles := []models.Candle{
		candleAt(10, 102, 5),
		candleAt(0, 100, 5),
		candleAt(5, 101, 5),
	}
	s := New(candles)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, 100.0, s.Candles[0].Close)
	assert.Equal(t, 101.0, s.PrevClose())
	assert.Equal(t, 102.0, s.LastClose())
}

func TestNewTrimsToWindow(t *testing.T) {
	candles := make([]models.Candle, WindowSize+50)
	for i := range candles {
		candles[i] = candleAt(i, float64(i), 1)
	}
	s := New(candles)

	assert.Equal(t, WindowSize, s.Len())
	// Oldest candles are dropped, newest kept.
	assert.Equal(t, float64(WindowSize+49), s.LastClose())
	assert.Equal(t, float64(50), s.Candles[0].Close)
	assert.Len(t, s.Volatility, WindowSize, "indicator column must stay aligned with candles")
}

func TestEmptySeries(t *testing.T) {
	s := New(nil)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, s.LastClose())
	assert.Equal(t, 0.0, s.PrevClose())
	assert.Equal(t, 0.0, s.LastVolume())
}

func TestAvgVolume(t *testing.T) {
	candles := []models.Candle{
		candleAt(0, 100, 10),
		candleAt(1, 100, 20),
		candleAt(2, 100, 30),
	}
	s := New(candles)
	assert.InDelta(t, 25.0, s.AvgVolume(2), 1e-9)
	assert.Equal(t, 30.0, s.LastVolume())
}
