package simulator

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"math"
	"time"
)

const (
	// kWh per Ah per SoC point ratio used by the GX battery model
	DISCHARGE_VOLTAGE_EQUIVALENT = 0.048
	CHARGE_VOLTAGE_EQUIVALENT    = 0.052
	// converts a power limit (W) into energy per half hour slot (kWh)
	LIMIT_SCALE = 2000.0
)

var ErrInvalidBattery = errors.New("invalid battery parameters")

type Battery struct {
	StateOfHealth float64 // %
	CapacityAh    float64
	MinSoC        float64 // %
	GridSetpointW float64
}

func (b Battery) Validate() error {
	if b.StateOfHealth <= 0 || b.CapacityAh <= 0 {
		return fmt.Errorf("%w: soh=%v capacity=%v", ErrInvalidBattery, b.StateOfHealth, b.CapacityAh)
	}
	if b.MinSoC < 0 || b.MinSoC >= 100 {
		return fmt.Errorf("%w: min soc=%v", ErrInvalidBattery, b.MinSoC)
	}
	return nil
}

// Dischargeable is the energy (kWh) available above the minimum SoC.
func (b Battery) Dischargeable(soc float64) float64 {
	return b.StateOfHealth / 100 * b.CapacityAh * DISCHARGE_VOLTAGE_EQUIVALENT * math.Max(0, soc-b.MinSoC) / 100
}

// Chargeable is the energy (kWh) the battery can still store.
func (b Battery) Chargeable(soc float64) float64 {
	return b.StateOfHealth / 100 * b.CapacityAh * CHARGE_VOLTAGE_EQUIVALENT * math.Max(0, 100-soc) / 100
}

// SoCDelta converts retained and released energy into SoC points.
func (b Battery) SoCDelta(retained, released float64) float64 {
	return (retained/CHARGE_VOLTAGE_EQUIVALENT - released/DISCHARGE_VOLTAGE_EQUIVALENT) /
		(b.StateOfHealth * b.CapacityAh) * 10000
}

// Period is one simulated half hour. Energies are kWh over the slot.
type Period struct {
	Index        int
	PeriodEnd    time.Time
	SoCStart     float64
	SoCEnd       float64
	Produced     float64
	Consumed     float64
	Released     float64
	Retained     float64
	Imported     float64
	Exported     float64
	SelfConsumed float64
}

type Result struct {
	Limit         float64
	Periods       []Period
	SoCMin        float64
	SoCMax        float64
	TotalProduced float64
	TotalConsumed float64
}

// Simulate runs the battery forward across the horizon with the given discharge power limit (W).
// It has no side effects.
func Simulate(h forecast.Horizon, startSoC float64, limit float64, b Battery) Result {
	res := Result{
		Limit:   limit,
		Periods: make([]Period, 0, len(h)),
		SoCMin:  startSoC,
		SoCMax:  startSoC,
	}
	limitCap := limit / LIMIT_SCALE
	gridCap := b.GridSetpointW / LIMIT_SCALE

	soc := startSoC
	for i, slot := range h {
		p := Period{
			Index:     slot.Index,
			PeriodEnd: slot.PeriodEnd,
			SoCStart:  soc,
			Produced:  slot.Produced,
			Consumed:  slot.Consumed,
		}
		p.Released = math.Min(b.Dischargeable(soc), math.Min(limitCap, math.Max(0, slot.Consumed-slot.Produced-gridCap)))
		p.Retained = math.Min(b.Chargeable(soc), math.Max(0, slot.Produced-slot.Consumed))
		p.Imported = math.Max(0, slot.Consumed-slot.Produced-p.Released)
		p.Exported = math.Max(0, slot.Produced-slot.Consumed-p.Retained)
		p.SelfConsumed = math.Min(slot.Produced, slot.Consumed)
		p.SoCEnd = soc + b.SoCDelta(p.Retained, p.Released)

		if i == 0 {
			res.SoCMin, res.SoCMax = p.SoCEnd, p.SoCEnd
		} else {
			res.SoCMin = math.Min(res.SoCMin, p.SoCEnd)
			res.SoCMax = math.Max(res.SoCMax, p.SoCEnd)
		}
		res.TotalProduced += p.Produced
		res.TotalConsumed += p.Consumed
		res.Periods = append(res.Periods, p)
		soc = p.SoCEnd
	}
	return res
}

func (r Result) EndSoC() float64 {
	if len(r.Periods) == 0 {
		return r.SoCMin
	}
	return r.Periods[len(r.Periods)-1].SoCEnd
}
