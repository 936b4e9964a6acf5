package gx_modbus

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	POINT_BATTERY_DISCHARGED_ENERGY = "battery_discharged_energy"
	POINT_BATTERY_CHARGED_ENERGY    = "battery_charged_energy"
	POINT_GRID_IMPORTED_ENERGY      = "grid_imported_energy"
	POINT_GRID_EXPORTED_ENERGY      = "grid_exported_energy"
	POINT_PV_PRODUCED_ENERGY        = "pv_produced_energy"
	POINT_BATTERY_SOC               = "battery_soc"
	POINT_BATTERY_SOH               = "battery_soh"
	POINT_BATTERY_CAPACITY          = "battery_installed_capacity"
	POINT_MINIMUM_SOC_LIMIT         = "minimum_soc_limit"
	POINT_GRID_SETPOINT             = "grid_setpoint"
	POINT_MAX_DISCHARGE_POWER       = "max_discharge_power"
)

var (
	ErrUnknownPoint     = errors.New("unknown point")
	ErrPointNotWritable = errors.New("point is not writable")
	ErrValueOutOfRange  = errors.New("value out of register range")
)

type PointType string

const (
	TYPE_UINT16 PointType = "uint16"
	TYPE_INT16  PointType = "int16"
	TYPE_UINT32 PointType = "uint32"
	TYPE_INT32  PointType = "int32"
)

// Point maps a named GX value to a holding register.
type Point struct {
	Name     string
	Service  string
	Path     string
	UnitId   uint8
	Address  uint16
	Type     PointType
	Scale    float64
	Writable bool
}

func (p Point) Validate() error {
	if p.Name == "" {
		return errors.New("point name is empty")
	}
	switch p.Type {
	case TYPE_UINT16, TYPE_INT16, TYPE_UINT32, TYPE_INT32:
	default:
		return fmt.Errorf("point %s: unsupported type %q", p.Name, p.Type)
	}
	if p.Scale == 0 {
		return fmt.Errorf("point %s: scale cannot be zero", p.Name)
	}
	return nil
}

func (p Point) is32() bool {
	return p.Type == TYPE_UINT32 || p.Type == TYPE_INT32
}

// Decode converts a raw register value into engineering units.
func (p Point) Decode(raw uint32) float64 {
	switch p.Type {
	case TYPE_INT16:
		return float64(int16(uint16(raw))) * p.Scale
	case TYPE_INT32:
		return float64(int32(raw)) * p.Scale
	case TYPE_UINT16:
		return float64(uint16(raw)) * p.Scale
	default:
		return float64(raw) * p.Scale
	}
}

// Encode converts a value in engineering units into a raw register value.
func (p Point) Encode(value float64) (uint32, error) {
	scaled := math.Round(value / p.Scale)
	switch p.Type {
	case TYPE_UINT16:
		if scaled < 0 || scaled > math.MaxUint16 {
			return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, p.Name, value)
		}
		return uint32(scaled), nil
	case TYPE_INT16:
		if scaled < math.MinInt16 || scaled > math.MaxInt16 {
			return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, p.Name, value)
		}
		return uint32(uint16(int16(scaled))), nil
	case TYPE_UINT32:
		if scaled < 0 || scaled > math.MaxUint32 {
			return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, p.Name, value)
		}
		return uint32(scaled), nil
	default:
		if scaled < math.MinInt32 || scaled > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, p.Name, value)
		}
		return uint32(int32(scaled)), nil
	}
}

func (p Point) String() string {
	return fmt.Sprintf("%s(%s%s @%d:%d)", p.Name, p.Service, p.Path, p.UnitId, p.Address)
}

// DefaultPoints is the register map of a Venus OS GX device with a single battery monitor,
// grid meter and PV inverter.
func DefaultPoints() []Point {
	return []Point{
		{Name: POINT_BATTERY_DISCHARGED_ENERGY, Service: "com.victronenergy.battery", Path: "/History/DischargedEnergy",
			UnitId: 225, Address: 301, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_BATTERY_CHARGED_ENERGY, Service: "com.victronenergy.battery", Path: "/History/ChargedEnergy",
			UnitId: 225, Address: 302, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_GRID_IMPORTED_ENERGY, Service: "com.victronenergy.grid", Path: "/Ac/Energy/Forward",
			UnitId: 30, Address: 2634, Type: TYPE_UINT32, Scale: 0.01},
		{Name: POINT_GRID_EXPORTED_ENERGY, Service: "com.victronenergy.grid", Path: "/Ac/Energy/Reverse",
			UnitId: 30, Address: 2636, Type: TYPE_UINT32, Scale: 0.01},
		{Name: POINT_PV_PRODUCED_ENERGY, Service: "com.victronenergy.pvinverter", Path: "/Ac/Energy/Forward",
			UnitId: 20, Address: 1046, Type: TYPE_UINT32, Scale: 0.01},
		{Name: POINT_BATTERY_SOC, Service: "com.victronenergy.battery", Path: "/Soc",
			UnitId: 225, Address: 266, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_BATTERY_SOH, Service: "com.victronenergy.battery", Path: "/Soh",
			UnitId: 225, Address: 304, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_BATTERY_CAPACITY, Service: "com.victronenergy.battery", Path: "/InstalledCapacity",
			UnitId: 225, Address: 309, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_MINIMUM_SOC_LIMIT, Service: "com.victronenergy.settings", Path: "/Settings/CGwacs/BatteryLife/MinimumSocLimit",
			UnitId: 100, Address: 2901, Type: TYPE_UINT16, Scale: 0.1},
		{Name: POINT_GRID_SETPOINT, Service: "com.victronenergy.settings", Path: "/Settings/CGwacs/AcPowerSetPoint",
			UnitId: 100, Address: 2700, Type: TYPE_INT16, Scale: 1},
		{Name: POINT_MAX_DISCHARGE_POWER, Service: "com.victronenergy.settings", Path: "/Settings/CGwacs/MaxDischargePower",
			UnitId: 100, Address: 2704, Type: TYPE_UINT16, Scale: 10, Writable: true},
	}
}

// MergePoints overrides default points by name.
func MergePoints(base []Point, overrides []Point) ([]Point, error) {
	out := make([]Point, len(base))
	copy(out, base)
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, o.Name) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out, nil
}
