// Package domain provides core domain implementations.
package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/profile"
)

// Fleet keeps track of the configured inverters. Registration happens at
// startup from configuration; lookups come from the radio ingest path, the
// publishers and the HTTP API concurrently.
type Fleet struct {
	inverters map[uint64]*Inverter
	order     []uint64
	mutex     sync.RWMutex
}

// NewFleet creates an empty inverter fleet.
func NewFleet() *Fleet {
	return &Fleet{
		inverters: make(map[uint64]*Inverter),
	}
}

// RegisterInverter adds an inverter to the fleet. The serial must resolve to
// a known hardware profile, which also supplies the decode table for the
// device's statistics parser.
func (f *Fleet) RegisterInverter(serial uint64, name string) (*Inverter, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if _, exists := f.inverters[serial]; exists {
		return nil, fmt.Errorf("inverter %s already registered", profile.FormatSerial(serial))
	}

	prof, err := profile.ForSerial(serial)
	if err != nil {
		return nil, err
	}

	stats := parser.NewStatisticsParser()
	stats.SetByteAssignment(prof.Assignments)

	inv := &Inverter{
		Serial:     serial,
		Name:       name,
		Profile:    prof,
		Statistics: stats,
	}
	f.inverters[serial] = inv
	f.order = append(f.order, serial)

	return inv, nil
}

// GetInverter retrieves an inverter by numeric serial.
func (f *Fleet) GetInverter(serial uint64) (*Inverter, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	inv, exists := f.inverters[serial]
	return inv, exists
}

// GetInverterBySerialString retrieves an inverter by its printed serial.
func (f *Fleet) GetInverterBySerialString(serial string) (*Inverter, bool) {
	numeric, err := profile.ParseSerial(serial)
	if err != nil {
		return nil, false
	}
	return f.GetInverter(numeric)
}

// GetAllInverters returns the fleet in registration order.
func (f *Fleet) GetAllInverters() []*Inverter {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	inverters := make([]*Inverter, 0, len(f.order))
	for _, serial := range f.order {
		inverters = append(inverters, f.inverters[serial])
	}
	return inverters
}

// Count returns the number of registered inverters.
func (f *Fleet) Count() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.inverters)
}

// ReachableCount returns how many inverters delivered telemetry within
// maxAge of now.
func (f *Fleet) ReachableCount(now time.Time, maxAge time.Duration) int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	count := 0
	for _, inv := range f.inverters {
		if inv.IsReachable(now, maxAge) {
			count++
		}
	}
	return count
}
