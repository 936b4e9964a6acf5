package forecast

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"time"
)

const (
	MAX_HORIZON_SLOTS = 96
)

var (
	ErrMalformedTimestamp = errors.New("malformed forecast period end")
	ErrMissingConsumption = errors.New("missing consumption history for slot")
	ErrEmptyHorizon       = errors.New("no forecast period ahead")
)

type Mode string

const (
	// MODE_ROLLING keeps the records ahead of now, in order.
	MODE_ROLLING Mode = "rolling"
	// MODE_FIXED indexes records by slot of day starting at today's first slot.
	MODE_FIXED Mode = "fixed"
)

// Record is one period of a production forecast, as returned by Solcast.
type Record struct {
	PeriodEnd             string  `json:"period_end"`
	EstimatedProductionKW float64 `json:"pv_estimate"`
	Period                string  `json:"period,omitempty"`
}

// Slot is one half hour of the horizon, seeded with production and consumption (kWh).
type Slot struct {
	Index     int
	PeriodEnd time.Time
	Produced  float64
	Consumed  float64
}

type Horizon []Slot

type BuilderOptions struct {
	Location        *time.Location
	Mode            Mode
	Slots           int
	ProductionScale float64
}

// Builder aligns forecast records to local half hour slots.
type Builder struct {
	opts  BuilderOptions
	fixed []Slot
	set   []bool
}

func NewBuilder(opts BuilderOptions) *Builder {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Slots <= 0 || opts.Slots > MAX_HORIZON_SLOTS {
		opts.Slots = MAX_HORIZON_SLOTS
	}
	if opts.Mode == "" {
		opts.Mode = MODE_ROLLING
	}
	if opts.ProductionScale <= 0 {
		opts.ProductionScale = consumption.SLOT_DURATION.Hours()
	}
	b := &Builder{opts: opts}
	b.Reset()
	return b
}

func (b *Builder) Options() BuilderOptions {
	return b.opts
}

// Reset clears the slots retained by the fixed origin mode. Called at day rollover.
func (b *Builder) Reset() {
	b.fixed = make([]Slot, b.opts.Slots)
	b.set = make([]bool, b.opts.Slots)
}

// Build turns forecast records into a horizon. Any malformed record or a slot without consumption
// history fails the whole build and leaves retained state untouched.
func (b *Builder) Build(records []Record, table *consumption.Table, now time.Time) (Horizon, error) {
	now = now.In(b.opts.Location)
	switch b.opts.Mode {
	case MODE_FIXED:
		return b.buildFixed(records, table, now)
	default:
		return b.buildRolling(records, table, now)
	}
}

func (b *Builder) buildRolling(records []Record, table *consumption.Table, now time.Time) (Horizon, error) {
	horizon := make(Horizon, 0, b.opts.Slots)
	for _, rec := range records {
		if len(horizon) >= b.opts.Slots {
			break
		}
		periodEnd, err := b.localPeriodEnd(rec)
		if err != nil {
			return nil, err
		}
		if !periodEnd.After(now) {
			continue
		}
		slot, err := b.slot(rec, periodEnd, table)
		if err != nil {
			return nil, err
		}
		slot.Index = len(horizon)
		horizon = append(horizon, slot)
	}
	if len(horizon) == 0 {
		return nil, ErrEmptyHorizon
	}
	return horizon, nil
}

func (b *Builder) buildFixed(records []Record, table *consumption.Table, now time.Time) (Horizon, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.opts.Location)
	fixed := make([]Slot, len(b.fixed))
	copy(fixed, b.fixed)
	set := make([]bool, len(b.set))
	copy(set, b.set)

	for _, rec := range records {
		periodEnd, err := b.localPeriodEnd(rec)
		if err != nil {
			return nil, err
		}
		idx := int(periodEnd.Sub(midnight)/consumption.SLOT_DURATION) - 1
		if idx < 0 || idx >= len(fixed) {
			continue
		}
		slot, err := b.slot(rec, periodEnd, table)
		if err != nil {
			return nil, err
		}
		slot.Index = idx
		fixed[idx] = slot
		set[idx] = true
	}

	b.fixed = fixed
	b.set = set

	horizon := make(Horizon, 0, len(fixed))
	for i := range fixed {
		if set[i] {
			horizon = append(horizon, fixed[i])
		}
	}
	if len(horizon) == 0 {
		return nil, ErrEmptyHorizon
	}
	return horizon, nil
}

func (b *Builder) localPeriodEnd(rec Record) (time.Time, error) {
	periodEnd, err := ParsePeriodEnd(rec.PeriodEnd)
	if err != nil {
		return time.Time{}, err
	}
	return periodEnd.In(b.opts.Location), nil
}

func (b *Builder) slot(rec Record, local time.Time, table *consumption.Table) (Slot, error) {
	key := consumption.SlotKey(local)
	consumed, ok := table.Get(key)
	if !ok {
		return Slot{}, fmt.Errorf("%w %s", ErrMissingConsumption, key)
	}
	return Slot{
		PeriodEnd: local,
		Produced:  rec.EstimatedProductionKW * b.opts.ProductionScale,
		Consumed:  consumed,
	}, nil
}

// ParsePeriodEnd parses a UTC period end such as "2024-05-01T10:30:00.0000000Z".
func ParsePeriodEnd(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrMalformedTimestamp, value, err)
	}
	return t.UTC(), nil
}
