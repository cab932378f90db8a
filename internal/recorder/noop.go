package recorder

import "MomentumScreener/internal/model"

// NoopRecorder is a no-op implementation used when no result file is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ *model.ScanResult) error { return nil }
func (n *NoopRecorder) Close() error                     { return nil }
