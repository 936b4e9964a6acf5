package consumption

type MeterKind string

const (
	METER_RELEASED MeterKind = "released"
	METER_RETAINED MeterKind = "retained"
	METER_IMPORTED MeterKind = "imported"
	METER_EXPORTED MeterKind = "exported"
	METER_PRODUCED MeterKind = "produced"
)

// MeterKinds lists the meters in the order they enter the balance.
var MeterKinds = []MeterKind{METER_RELEASED, METER_RETAINED, METER_IMPORTED, METER_EXPORTED, METER_PRODUCED}

// Reader returns the current cumulative value of a device point, or false when it is unavailable.
type Reader interface {
	Read(point string) (float64, bool)
}

// Meter is one cumulative energy counter.
type Meter struct {
	Kind        MeterKind
	Point       string
	LastValue   *float64
	PeriodDelta float64
	Fresh       bool
}

// Update is the outcome of one period for all meters.
type Update struct {
	Deltas         map[MeterKind]float64
	FreshCount     int
	NetConsumption float64
}

// Complete reports whether every meter produced a fresh delta.
func (u Update) Complete() bool {
	return u.FreshCount == len(MeterKinds)
}

// Tracker turns cumulative meter readings into per period net consumption.
type Tracker struct {
	meters []*Meter
}

// NewTracker maps each meter kind to the device point it is read from.
func NewTracker(points map[MeterKind]string) *Tracker {
	t := &Tracker{}
	for _, kind := range MeterKinds {
		t.meters = append(t.meters, &Meter{
			Kind:  kind,
			Point: points[kind],
		})
	}
	return t
}

func (t *Tracker) Meters() []Meter {
	out := make([]Meter, 0, len(t.meters))
	for _, m := range t.meters {
		out = append(out, *m)
	}
	return out
}

// Points returns the device points the tracker reads, in meter order.
func (t *Tracker) Points() []string {
	out := make([]string, 0, len(t.meters))
	for _, m := range t.meters {
		out = append(out, m.Point)
	}
	return out
}

// Update reads every meter once and computes the deltas since the previous call.
// A meter without a reading, or without a previous value, contributes a zero delta and is not fresh.
// The last value of each meter follows the latest reading whatever the outcome.
func (t *Tracker) Update(r Reader) Update {
	u := Update{
		Deltas: make(map[MeterKind]float64, len(t.meters)),
	}
	for _, m := range t.meters {
		m.PeriodDelta = 0
		m.Fresh = false
		value, ok := r.Read(m.Point)
		if ok {
			if m.LastValue != nil {
				m.PeriodDelta = value - *m.LastValue
				m.Fresh = true
				u.FreshCount++
			}
			v := value
			m.LastValue = &v
		}
		u.Deltas[m.Kind] = m.PeriodDelta
	}
	u.NetConsumption = NetConsumption(u.Deltas)
	return u
}

// NetConsumption applies the energy balance: what the house consumed is what the battery released
// plus what was imported plus what was produced, minus what was stored or exported.
func NetConsumption(d map[MeterKind]float64) float64 {
	return d[METER_RELEASED] - d[METER_RETAINED] + d[METER_IMPORTED] - d[METER_EXPORTED] + d[METER_PRODUCED]
}
