package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amunozj/ellery/internal/logging"
)

// mockRangeQuerier returns a canned matrix for every range query.
type mockRangeQuerier struct {
	result model.Value
	err    error
	warns  promv1.Warnings
	lastQ  string
}

func (m *mockRangeQuerier) QueryRange(_ context.Context, query string, _ promv1.Range, _ ...promv1.Option) (model.Value, promv1.Warnings, error) {
	m.lastQ = query
	return m.result, m.warns, m.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.URL = "http://prometheus:9090"
	cfg.Query = `activity_index`
	cfg.Start = time.Unix(1000, 0)
	cfg.End = time.Unix(5000, 0)
	return cfg
}

func sampleStream(instance string, pairs ...model.SamplePair) *model.SampleStream {
	return &model.SampleStream{
		Metric: model.Metric{"instance": model.LabelValue(instance)},
		Values: pairs,
	}
}

func TestFetchRecordsConvertsMatrix(t *testing.T) {
	mock := &mockRangeQuerier{
		result: model.Matrix{
			sampleStream("obs-b",
				model.SamplePair{Timestamp: model.TimeFromUnix(2000), Value: 4.0},
				model.SamplePair{Timestamp: model.TimeFromUnix(3000), Value: -2.0},
			),
			sampleStream("obs-a",
				model.SamplePair{Timestamp: model.TimeFromUnix(1000), Value: 10.0},
			),
		},
	}
	c := NewWithAPI(mock, logging.NewTestLogger())

	records, err := c.FetchRecords(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// records are sorted by name for deterministic indexing
	assert.Equal(t, "obs-a", records[0].Name)
	assert.Equal(t, "obs-b", records[1].Name)

	assert.Equal(t, []float64{1000}, records[0].Times)
	assert.Equal(t, []float64{10}, records[0].Values)
	assert.InDelta(t, 0.5, records[0].Errs[0], 1e-12, "5%% of 10")

	assert.Equal(t, []float64{2000, 3000}, records[1].Times)
	assert.InDelta(t, 0.1, records[1].Errs[1], 1e-12, "uncertainty uses the absolute value")
}

func TestFetchRecordsDropsNonFiniteSamples(t *testing.T) {
	mock := &mockRangeQuerier{
		result: model.Matrix{
			sampleStream("obs-a",
				model.SamplePair{Timestamp: model.TimeFromUnix(1000), Value: model.SampleValue(math.NaN())},
				model.SamplePair{Timestamp: model.TimeFromUnix(2000), Value: 3.0},
			),
			sampleStream("obs-empty",
				model.SamplePair{Timestamp: model.TimeFromUnix(1000), Value: model.SampleValue(math.Inf(1))},
			),
		},
	}
	c := NewWithAPI(mock, logging.NewTestLogger())

	records, err := c.FetchRecords(context.Background(), testConfig())
	require.NoError(t, err)
	require.Len(t, records, 1, "series with no finite samples are skipped")
	assert.Equal(t, []float64{2000}, records[0].Times)
}

func TestFetchRecordsPropagatesQueryErrors(t *testing.T) {
	queryErr := errors.New("connection refused")
	c := NewWithAPI(&mockRangeQuerier{err: queryErr}, logging.NewTestLogger())

	_, err := c.FetchRecords(context.Background(), testConfig())
	assert.ErrorIs(t, err, queryErr)
}

func TestFetchRecordsRejectsNonMatrix(t *testing.T) {
	c := NewWithAPI(&mockRangeQuerier{result: model.Vector{}}, logging.NewTestLogger())
	_, err := c.FetchRecords(context.Background(), testConfig())
	assert.Error(t, err)
}

func TestFetchRecordsValidatesConfig(t *testing.T) {
	c := NewWithAPI(&mockRangeQuerier{result: model.Matrix{}}, logging.NewTestLogger())

	cfg := testConfig()
	cfg.Query = ""
	_, err := c.FetchRecords(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.End = cfg.Start
	_, err = c.FetchRecords(context.Background(), cfg)
	assert.Error(t, err)
}
