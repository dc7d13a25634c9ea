package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/amunozj/ellery/internal/dataset"
)

// recordFile is the on-disk record layout.
type recordFile struct {
	Records []struct {
		Name   string    `yaml:"name"`
		Times  []float64 `yaml:"times"`
		Values []float64 `yaml:"values"`
		Errs   []float64 `yaml:"errs"`
	} `yaml:"records"`
}

// LoadRecords reads a YAML record file into dataset records. Per-record
// validation is left to RecordSet.Ingest.
func LoadRecords(path string) ([]dataset.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file %q: %w", path, err)
	}
	var rf recordFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse record file %q: %w", path, err)
	}
	if len(rf.Records) == 0 {
		return nil, fmt.Errorf("record file %q contains no records", path)
	}
	records := make([]dataset.Record, 0, len(rf.Records))
	for _, r := range rf.Records {
		records = append(records, dataset.Record{
			Name:   r.Name,
			Times:  r.Times,
			Values: r.Values,
			Errs:   r.Errs,
		})
	}
	return records, nil
}
