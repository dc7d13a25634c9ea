package dataset

import (
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RecordSet", func() {

	Describe("Ingest", func() {
		It("should reject mismatched array lengths", func() {
			s := NewRecordSet()
			err := s.Ingest(Record{
				Name:   "bad",
				Times:  []float64{0, 1, 2},
				Values: []float64{1, 2},
				Errs:   []float64{0.1, 0.1, 0.1},
			})
			Expect(err).To(MatchError(ErrShapeMismatch))
			Expect(s.NumRecords()).To(Equal(0))
		})

		It("should reject non-positive uncertainties", func() {
			s := NewRecordSet()
			err := s.Ingest(Record{
				Times:  []float64{0, 1},
				Values: []float64{1, 2},
				Errs:   []float64{0.1, 0},
			})
			Expect(err).To(MatchError(ErrBadSample))
		})

		It("should copy the input arrays", func() {
			times := []float64{0, 1}
			s := NewRecordSet()
			Expect(s.Ingest(Record{
				Times:  times,
				Values: []float64{1, 2},
				Errs:   []float64{0.1, 0.1},
			})).To(Succeed())

			times[0] = 99
			Expect(s.Record(0).Times[0]).To(Equal(0.0))
		})
	})

	Describe("Flatten", func() {
		It("should merge records into one time-sorted dataset", func() {
			s := NewRecordSet()
			Expect(s.Ingest(
				Record{Times: []float64{3, 1, 5}, Values: []float64{30, 10, 50}, Errs: []float64{1, 1, 1}},
				Record{Times: []float64{2, 4}, Values: []float64{20, 40}, Errs: []float64{1, 1}},
			)).To(Succeed())

			d := s.Flatten()
			Expect(d.Len()).To(Equal(5))
			Expect(sort.Float64sAreSorted(d.Times)).To(BeTrue())
			Expect(d.Times).To(Equal([]float64{1, 2, 3, 4, 5}))
			Expect(d.Values).To(Equal([]float64{10, 20, 30, 40, 50}))
			Expect(d.Owner).To(Equal([]int{0, 1, 0, 1, 0}))
		})

		It("should break ties by record index then in-record position", func() {
			s := NewRecordSet()
			Expect(s.Ingest(
				Record{Times: []float64{2, 2}, Values: []float64{1, 2}, Errs: []float64{1, 1}},
				Record{Times: []float64{2}, Values: []float64{3}, Errs: []float64{1}},
			)).To(Succeed())

			d := s.Flatten()
			Expect(d.Values).To(Equal([]float64{1, 2, 3}))
			Expect(d.Owner).To(Equal([]int{0, 0, 1}))
		})

		It("should preserve per-sample provenance through the owner index", func() {
			s := NewRecordSet()
			Expect(s.Ingest(
				Record{Times: []float64{0.3, 0.1}, Values: []float64{3, 1}, Errs: []float64{0.3, 0.1}},
				Record{Times: []float64{0.2}, Values: []float64{2}, Errs: []float64{0.2}},
			)).To(Succeed())

			d := s.Flatten()
			for k := range d.Times {
				r := s.Record(d.Owner[k])
				found := false
				for i := range r.Times {
					if r.Times[i] == d.Times[k] && r.Values[i] == d.Values[k] && r.Errs[i] == d.Errs[k] {
						found = true
					}
				}
				Expect(found).To(BeTrue(), "global sample %d must exist in its owning record", k)
			}
		})

		It("should cache the merge until the record set changes", func() {
			s := NewRecordSet()
			Expect(s.Ingest(
				Record{Times: []float64{1}, Values: []float64{1}, Errs: []float64{1}},
			)).To(Succeed())

			d1 := s.Flatten()
			Expect(s.Flatten()).To(BeIdenticalTo(d1))

			Expect(s.Ingest(
				Record{Times: []float64{2}, Values: []float64{2}, Errs: []float64{1}},
			)).To(Succeed())
			d2 := s.Flatten()
			Expect(d2).NotTo(BeIdenticalTo(d1))
			Expect(d2.Len()).To(Equal(2))
		})
	})

	Describe("IndicesOf", func() {
		It("should return the global positions owned by a record", func() {
			s := NewRecordSet()
			Expect(s.Ingest(
				Record{Times: []float64{1, 4}, Values: []float64{1, 4}, Errs: []float64{1, 1}},
				Record{Times: []float64{2, 3}, Values: []float64{2, 3}, Errs: []float64{1, 1}},
			)).To(Succeed())

			d := s.Flatten()
			Expect(d.IndicesOf(0)).To(Equal([]int{0, 3}))
			Expect(d.IndicesOf(1)).To(Equal([]int{1, 2}))
		})
	})
})
