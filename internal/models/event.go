// Package models holds the data types shared between the detector core and
// the surrounding instrument: Monte Carlo trajectories and the per-event
// dynamic field store the charge-division electronics write into.
package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Trajectory is one simulated particle track in the detector bank's
// reference frame. Position is where the particle currently is, Velocity
// its velocity in m/s, Time the accumulated time of flight in seconds up
// to Position, and Weight the Monte Carlo statistical weight.
type Trajectory struct {
	Position r3.Vec
	Velocity r3.Vec
	Time     float64
	Weight   float64

	// Fields is the event's dynamic field store, if the instrument
	// attaches one. The detector writes its readout values here; a nil
	// store disables all writes.
	Fields FieldStore
}

// FieldSchema answers whether a named per-event field exists. The detector
// validates its configured field names against a schema at construction
// time, so a typo fails the setup instead of silently dropping readouts.
type FieldSchema interface {
	Has(name string) bool
}

// FieldStore is the per-event dynamic field store the instrument exposes
// to the detector. Set replaces the value of an existing field.
type FieldStore interface {
	FieldSchema
	Set(name string, value float64)
}

// Record is a map-backed FieldStore used by the example instrument and the
// tests. The zero value is not usable; create one with NewRecord.
type Record map[string]float64

// NewRecord returns a Record with the given field names registered at 0.
func NewRecord(names ...string) Record {
	r := make(Record, len(names))
	for _, n := range names {
		r[n] = 0
	}
	return r
}

// Has reports whether the named field exists in the record.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Set stores a value under an existing field name. Setting an unknown name
// is ignored; schema validation at detector construction makes that case
// unreachable in a correctly configured instrument.
func (r Record) Set(name string, value float64) {
	if _, ok := r[name]; ok {
		r[name] = value
	}
}

// Get returns the value of a field and whether it exists.
func (r Record) Get(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

// Clone returns an independent copy of the record, used to stamp out one
// event record per trajectory from an instrument-level template.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
