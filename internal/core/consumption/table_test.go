package consumption

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKeys(t *testing.T) {

	keys := SlotKeys()
	require.Len(t, keys, SLOT_COUNT)
	assert.Equal(t, "00:00", keys[0])
	assert.Equal(t, "00:30", keys[1])
	assert.Equal(t, "23:30", keys[47])
}

func TestIsSlotKey(t *testing.T) {

	assert.True(t, IsSlotKey("00:00"))
	assert.True(t, IsSlotKey("13:30"))
	assert.False(t, IsSlotKey("13:15"))
	assert.False(t, IsSlotKey("7:30"))
	assert.False(t, IsSlotKey("24:00"))
	assert.False(t, IsSlotKey("lorem"))
}

func TestSlotKeyFormatting(t *testing.T) {

	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "09:30", SlotKey(time.Date(2024, 5, 1, 9, 30, 0, 0, loc)))
}

func TestTableFromMap(t *testing.T) {

	table, err := TableFromMap(map[string]float64{"00:30": 0.2, "01:00": 0.3})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Len(t, table.Missing(), SLOT_COUNT-2)
	assert.InDelta(t, 0.5, table.Total(), 1e-9)

	_, err = TableFromMap(map[string]float64{"00:15": 0.2})
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func TestCommitRoundsToTwoDecimals(t *testing.T) {

	table := NewTable()
	u := Update{FreshCount: 5, NetConsumption: 0.123456}
	ok, err := table.Commit("12:00", u)
	require.NoError(t, err)
	assert.True(t, ok)
	v, _ := table.Get("12:00")
	assert.Equal(t, 0.12, v)
}

func TestValuesIsACopy(t *testing.T) {

	table := NewTable()
	values := table.Values()
	values["00:00"] = 42
	v, _ := table.Get("00:00")
	assert.Equal(t, 0.0, v)
}
