package recorder

import (
	"context"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// NoopRecorder is a no-op implementation used when saving is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ context.Context, _ *ScanRun) error                   { return nil }
func (n *NoopRecorder) AddResult(_ context.Context, _ int64, _ model.ScanResult) error { return nil }
func (n *NoopRecorder) CompleteRun(_ context.Context, _ int64, _ string) error         { return nil }
func (n *NoopRecorder) ListResults(_ context.Context, _ ResultQuery) ([]StoredResult, error) {
	return nil, nil
}
func (n *NoopRecorder) TopGainers(_ context.Context, _ int) ([]StoredResult, error) { return nil, nil }
func (n *NoopRecorder) ListRuns(_ context.Context, _ int) ([]ScanRun, error)       { return nil, nil }
func (n *NoopRecorder) Close() error                                               { return nil }
