package forecast

import "time"

// Snapshot is the last successfully fetched forecast.
type Snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Forecasts []Record  `json:"forecasts"`
}

// IsFresh reports whether the snapshot can still be used at now.
func (s Snapshot) IsFresh(now time.Time, maxAge time.Duration) bool {
	if s.FetchedAt.IsZero() || len(s.Forecasts) == 0 {
		return false
	}
	age := now.Sub(s.FetchedAt)
	return age >= 0 && age <= maxAge
}
