package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/service"
)

// NewSource builds the event source named by ingest.source.
func NewSource(cfg config.IngestConfig, logger *zap.Logger) (service.EventSource, error) {
	switch cfg.Source {
	case "mysideline":
		return NewMySidelineProvider(cfg.MySideline, logger), nil
	case "file":
		return NewFileProvider(cfg.File), nil
	default:
		return nil, fmt.Errorf("unknown ingest source %q", cfg.Source)
	}
}
