package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPositionDirection(t *testing.T) {
	long := Position{Symbol: "BTC-USDT", Size: decimal.NewFromFloat(0.5)}
	short := Position{Symbol: "ETH-USDT", Size: decimal.NewFromFloat(-2)}
	flat := Position{Symbol: "SOL-USDT", Size: decimal.Zero}

	assert.False(t, long.IsShort())
	assert.False(t, long.IsClosed())

	assert.True(t, short.IsShort())
	assert.False(t, short.IsClosed())

	assert.True(t, flat.IsClosed())
}
