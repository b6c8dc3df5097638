package ingest

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mastersrl/carnivalhub/internal/model"
)

// FileProvider reads events from a YAML document:
//
//	events:
//	  - external_id: ms-1042
//	    title: Gold Coast Masters Carnival
//	    date: 2026-08-15
//	    state: Queensland
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Name() string { return "file" }

type fileDocument struct {
	Events []model.ExternalEvent `yaml:"events"`
}

func (p *FileProvider) Fetch(ctx context.Context) ([]model.ExternalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read ingest file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse ingest file %s: %w", p.path, err)
	}
	for i := range doc.Events {
		doc.Events[i].State = parseState(string(doc.Events[i].State))
		doc.Events[i].Date = doc.Events[i].Date.UTC()
	}
	return doc.Events, nil
}
