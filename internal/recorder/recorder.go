package recorder

import "MomentumScreener/internal/model"

// Recorder persists the outcome of a scan.
type Recorder interface {
	Record(res *model.ScanResult) error
	Close() error
}
