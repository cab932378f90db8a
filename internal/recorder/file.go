package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"MomentumScreener/internal/model"
	"MomentumScreener/internal/report"
)

// FileRecorder writes the result lines to a flat text file, replacing the
// previous run's contents.
type FileRecorder struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileRecorder creates a recorder for path. The parent directory is created on first write.
func NewFileRecorder(path string, logger *zap.Logger) *FileRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRecorder{path: path, logger: logger}
}

func (r *FileRecorder) Record(res *model.ScanResult) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create result dir: %w", err)
		}
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	lines := report.ResultLines(res)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write result file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}

	r.logger.Info("results saved", zap.String("path", r.path), zap.Int("lines", len(lines)))
	return nil
}

func (r *FileRecorder) Close() error { return nil }
