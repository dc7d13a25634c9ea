package dataset

import "sort"

// GlobalDataset is the read-only flattened view of a record set: the
// concatenation of all records' samples sorted ascending by time, with a
// parallel owner-index array giving, for every global position, the record
// that contributed it. Ties in time keep concatenation order (record index,
// then position within the record), so the merge is deterministic.
type GlobalDataset struct {
	Times  []float64
	Values []float64
	Errs   []float64
	Owner  []int

	numRecords int
}

// Flatten returns the merged global dataset. The result is cached on the
// record set and reused until the next Ingest.
func (s *RecordSet) Flatten() *GlobalDataset {
	if s.cached != nil {
		return s.cached
	}

	total := 0
	for _, r := range s.records {
		total += r.Len()
	}

	d := &GlobalDataset{
		Times:      make([]float64, 0, total),
		Values:     make([]float64, 0, total),
		Errs:       make([]float64, 0, total),
		Owner:      make([]int, 0, total),
		numRecords: len(s.records),
	}
	for ri, r := range s.records {
		d.Times = append(d.Times, r.Times...)
		d.Values = append(d.Values, r.Values...)
		d.Errs = append(d.Errs, r.Errs...)
		for range r.Times {
			d.Owner = append(d.Owner, ri)
		}
	}

	// stable sort over the concatenation order implements the tie-break
	// rule: equal times keep (record index, in-record position) order
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return d.Times[idx[a]] < d.Times[idx[b]]
	})

	sorted := &GlobalDataset{
		Times:      make([]float64, total),
		Values:     make([]float64, total),
		Errs:       make([]float64, total),
		Owner:      make([]int, total),
		numRecords: len(s.records),
	}
	for k, i := range idx {
		sorted.Times[k] = d.Times[i]
		sorted.Values[k] = d.Values[i]
		sorted.Errs[k] = d.Errs[i]
		sorted.Owner[k] = d.Owner[i]
	}

	s.cached = sorted
	return sorted
}

// Len returns the total number of samples across all records.
func (d *GlobalDataset) Len() int {
	return len(d.Times)
}

// NumRecords returns the number of records that contributed to the dataset.
func (d *GlobalDataset) NumRecords() int {
	return d.numRecords
}

// IndicesOf returns the global positions owned by the given record, in
// ascending time order. This is the canonical "unflatten" for one record.
func (d *GlobalDataset) IndicesOf(record int) []int {
	var out []int
	for k, o := range d.Owner {
		if o == record {
			out = append(out, k)
		}
	}
	return out
}
