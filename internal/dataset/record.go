package dataset

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShapeMismatch is returned when a record's time, value and
	// uncertainty arrays differ in length.
	ErrShapeMismatch = errors.New("record arrays have mismatched lengths")

	// ErrBadSample is returned when a record contains a non-finite time
	// or a non-positive uncertainty.
	ErrBadSample = errors.New("record contains an invalid sample")
)

// Record is one observer's contiguous contribution: a triple of equal-length
// arrays (time, value, uncertainty). Times need not be sorted within the
// record. A Record is immutable once ingested into a RecordSet.
type Record struct {
	Name   string
	Times  []float64
	Values []float64
	Errs   []float64
}

// Len returns the number of samples in the record.
func (r Record) Len() int {
	return len(r.Times)
}

// check validates array shapes and sample values.
func (r Record) check() error {
	if len(r.Times) != len(r.Values) || len(r.Times) != len(r.Errs) {
		return fmt.Errorf("record %q: times=%d values=%d errs=%d: %w",
			r.Name, len(r.Times), len(r.Values), len(r.Errs), ErrShapeMismatch)
	}
	for i, t := range r.Times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("record %q: non-finite time at index %d: %w", r.Name, i, ErrBadSample)
		}
		if !(r.Errs[i] > 0) || math.IsInf(r.Errs[i], 0) {
			return fmt.Errorf("record %q: non-positive uncertainty %v at index %d: %w",
				r.Name, r.Errs[i], i, ErrBadSample)
		}
		if math.IsNaN(r.Values[i]) || math.IsInf(r.Values[i], 0) {
			return fmt.Errorf("record %q: non-finite value at index %d: %w", r.Name, i, ErrBadSample)
		}
	}
	return nil
}

// clone deep-copies the record so later mutation of the caller's slices
// cannot reach into the store.
func (r Record) clone() Record {
	c := Record{
		Name:   r.Name,
		Times:  make([]float64, len(r.Times)),
		Values: make([]float64, len(r.Values)),
		Errs:   make([]float64, len(r.Errs)),
	}
	copy(c.Times, r.Times)
	copy(c.Values, r.Values)
	copy(c.Errs, r.Errs)
	return c
}

// RecordSet owns the ingested records for the lifetime of one inference run.
// Each record gets a stable 0-based index in ingestion order. The flattened
// global dataset is cached and rebuilt only when the record set changes.
type RecordSet struct {
	records []Record
	cached  *GlobalDataset
}

// NewRecordSet creates an empty record set.
func NewRecordSet() *RecordSet {
	return &RecordSet{}
}

// Ingest validates and stores the given records, assigning each the next
// 0-based index. Fails fast on the first malformed record; nothing from a
// failed call is stored.
func (s *RecordSet) Ingest(recs ...Record) error {
	for i := range recs {
		if err := recs[i].check(); err != nil {
			return err
		}
	}
	for i := range recs {
		s.records = append(s.records, recs[i].clone())
	}
	s.cached = nil
	return nil
}

// NumRecords returns the number of ingested records.
func (s *RecordSet) NumRecords() int {
	return len(s.records)
}

// Record returns the record at the given index.
func (s *RecordSet) Record(i int) Record {
	return s.records[i]
}

// RecordNames returns the record names in ingestion order.
func (s *RecordSet) RecordNames() []string {
	names := make([]string, len(s.records))
	for i, r := range s.records {
		names[i] = r.Name
	}
	return names
}
