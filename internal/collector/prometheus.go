// Package collector pulls observation records from a Prometheus backend:
// one range query grouped by an instance label, one record per returned
// series. This is the live-ingestion counterpart of the synthetic generator
// and the record-file loader; all three produce the same record triples.
package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/amunozj/ellery/internal/dataset"
)

// Config describes one record-fetching query.
type Config struct {
	// URL is the Prometheus base URL.
	URL string
	// Query is a range query expected to return one series per observer.
	Query string
	// InstanceLabel is the label distinguishing observers; its value
	// becomes the record name.
	InstanceLabel string
	// Start, End and Step bound the range query.
	Start time.Time
	End   time.Time
	Step  time.Duration
	// ErrFraction is the relative uncertainty assigned to every sample,
	// since Prometheus carries no per-sample error bars.
	ErrFraction float64
	// QueryTimeout is the timeout for the range query.
	QueryTimeout time.Duration
}

// DefaultConfig returns sensible defaults for everything but the query
// itself.
func DefaultConfig() Config {
	return Config{
		InstanceLabel: "instance",
		Step:          time.Hour,
		ErrFraction:   0.05,
		QueryTimeout:  30 * time.Second,
	}
}

func (c Config) check() error {
	if c.URL == "" || c.Query == "" || c.InstanceLabel == "" {
		return fmt.Errorf("collector config requires url, query and instance label")
	}
	if !c.End.After(c.Start) || c.Step <= 0 {
		return fmt.Errorf("invalid query range [%v, %v] step %v", c.Start, c.End, c.Step)
	}
	if c.ErrFraction <= 0 {
		return fmt.Errorf("invalid error fraction %v", c.ErrFraction)
	}
	return nil
}

// RangeQuerier is the slice of the Prometheus API the collector needs.
// promv1.API satisfies it.
type RangeQuerier interface {
	QueryRange(ctx context.Context, query string, r promv1.Range, opts ...promv1.Option) (model.Value, promv1.Warnings, error)
}

// PromCollector fetches records through the Prometheus HTTP API.
type PromCollector struct {
	api    RangeQuerier
	logger *zap.Logger
}

// New creates a collector against the given Prometheus base URL.
func New(url string, logger *zap.Logger) (*PromCollector, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &PromCollector{api: promv1.NewAPI(client), logger: logger}, nil
}

// NewWithAPI creates a collector over an existing API client.
func NewWithAPI(querier RangeQuerier, logger *zap.Logger) *PromCollector {
	return &PromCollector{api: querier, logger: logger}
}

// FetchRecords runs the configured range query and converts every returned
// sample stream into one observation record. Times are Unix seconds.
func (p *PromCollector) FetchRecords(ctx context.Context, cfg Config) ([]dataset.Record, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	result, warnings, err := p.api.QueryRange(qctx, cfg.Query, promv1.Range{
		Start: cfg.Start,
		End:   cfg.End,
		Step:  cfg.Step,
	})
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	for _, w := range warnings {
		p.logger.Warn("Prometheus query warning", zap.String("warning", w))
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("expected matrix result, got %s", result.Type())
	}

	records := make([]dataset.Record, 0, len(matrix))
	for _, stream := range matrix {
		name := string(stream.Metric[model.LabelName(cfg.InstanceLabel)])
		if name == "" {
			name = stream.Metric.String()
		}
		rec := dataset.Record{Name: name}
		for _, sample := range stream.Values {
			v := float64(sample.Value)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue // stale markers and gaps are dropped, not imputed
			}
			e := cfg.ErrFraction * math.Abs(v)
			if e == 0 {
				e = cfg.ErrFraction
			}
			rec.Times = append(rec.Times, float64(sample.Timestamp.Unix()))
			rec.Values = append(rec.Values, v)
			rec.Errs = append(rec.Errs, e)
		}
		if len(rec.Times) == 0 {
			continue
		}
		records = append(records, rec)
	}

	// deterministic record indexing regardless of server-side series order
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	p.logger.Info("Fetched observation records",
		zap.Int("records", len(records)),
		zap.String("query", cfg.Query))
	return records, nil
}
