package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("FIFO")
	require.NoError(t, err)
	assert.Equal(t, StrategyFIFO, s)

	s, err = ParseStrategy("HIFO")
	require.NoError(t, err)
	assert.Equal(t, StrategyHIFO, s)

	_, err = ParseStrategy("LIFO")
	assert.Error(t, err)
	_, err = ParseStrategy("fifo")
	assert.Error(t, err, "strategy names are case sensitive")
}

func TestDelegationEvent_Transferred(t *testing.T) {
	var ev DelegationEvent
	assert.False(t, ev.Transferred())

	f := false
	ev.IsTransfer = &f
	assert.False(t, ev.Transferred())

	tr := true
	ev.IsTransfer = &tr
	assert.True(t, ev.Transferred())
}

func TestDay_UsesUTC(t *testing.T) {
	// 2025-04-02 23:30 UTC
	ev := DelegationEvent{Timestamp: 1743636600}
	assert.Equal(t, "2025-04-02", ev.Day())

	snap := BalanceSnapshot{Timestamp: 1743636600 + 1800}
	assert.Equal(t, "2025-04-03", snap.Day(), "day boundary rolls at midnight UTC")
}
