package consumption

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	SLOT_COUNT    = 48
	SLOT_DURATION = 30 * time.Minute
	SLOT_LAYOUT   = "15:04"
)

var ErrInvalidSlot = errors.New("invalid consumption slot key")

// Table holds the last observed net consumption (kWh) for every half hour slot of the day,
// keyed by the local period end ("00:00", "00:30", ... "23:30").
type Table struct {
	values map[string]float64
}

// SlotKeys returns the 48 slot keys in time of day order.
func SlotKeys() []string {
	keys := make([]string, 0, SLOT_COUNT)
	t := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < SLOT_COUNT; i++ {
		keys = append(keys, t.Format(SLOT_LAYOUT))
		t = t.Add(SLOT_DURATION)
	}
	return keys
}

// SlotKey formats the period end of a slot as a table key.
func SlotKey(periodEnd time.Time) string {
	return periodEnd.Format(SLOT_LAYOUT)
}

func IsSlotKey(key string) bool {
	t, err := time.Parse(SLOT_LAYOUT, key)
	if err != nil {
		return false
	}
	return t.Format(SLOT_LAYOUT) == key && t.Minute()%30 == 0
}

// NewTable returns a table with every slot present and set to zero.
func NewTable() *Table {
	t := &Table{values: make(map[string]float64, SLOT_COUNT)}
	for _, k := range SlotKeys() {
		t.values[k] = 0
	}
	return t
}

// TableFromMap builds a table from a persisted snapshot. Slots absent from the snapshot stay absent.
func TableFromMap(values map[string]float64) (*Table, error) {
	t := &Table{values: make(map[string]float64, len(values))}
	for k, v := range values {
		if !IsSlotKey(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, k)
		}
		t.values[k] = v
	}
	return t, nil
}

func (t *Table) Get(key string) (float64, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t *Table) Set(key string, value float64) error {
	if !IsSlotKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, key)
	}
	t.values[key] = value
	return nil
}

// Commit stores the net consumption of an update into the slot, rounded to 2 decimals,
// only when the update is complete. It reports whether the slot was written.
func (t *Table) Commit(key string, u Update) (bool, error) {
	if !u.Complete() {
		return false, nil
	}
	if err := t.Set(key, math.Round(u.NetConsumption*100)/100); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Table) Len() int {
	return len(t.values)
}

// Missing lists the slot keys without a value.
func (t *Table) Missing() []string {
	var missing []string
	for _, k := range SlotKeys() {
		if _, ok := t.values[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Values returns a copy of the table contents.
func (t *Table) Values() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Total sums all slots, i.e. the daily consumption estimate.
func (t *Table) Total() float64 {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var total float64
	for _, k := range keys {
		total += t.values[k]
	}
	return total
}
