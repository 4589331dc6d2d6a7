package labeling

import (
	"sync"
	"time"
)

// StationDefaults holds per-station values that pre-fill the next batch
type StationDefaults struct {
	mu             sync.RWMutex
	device         string
	lastExpiration time.Time
	now            func() time.Time
}

// NewStationDefaults creates station defaults for the selected printer device.
// A nil clock defaults to time.Now.
func NewStationDefaults(device string, now func() time.Time) *StationDefaults {
	if now == nil {
		now = time.Now
	}
	return &StationDefaults{device: device, now: now}
}

// Device returns the selected printer device
func (d *StationDefaults) Device() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.device
}

// SetDevice selects the printer device
func (d *StationDefaults) SetDevice(device string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device = device
}

// ExpirationDate returns the expiration date of the last fully successful
// batch, or today when there is none
func (d *StationDefaults) ExpirationDate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastExpiration.IsZero() {
		return truncateToDate(d.now())
	}
	return d.lastExpiration
}

// RememberExpiration stores date as the default for the next batch
func (d *StationDefaults) RememberExpiration(date time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastExpiration = truncateToDate(date)
}

func truncateToDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}
