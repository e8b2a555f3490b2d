package scanner

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// BinDirScanner discovers applications from Unix bin directories: every
// regular, execute-permitted file is a candidate named after the filename.
type BinDirScanner struct {
	dirs   []string
	plat   *platform.Platform
	logger *zap.Logger
}

// NewBinDirScanner creates a scanner over the platform's bin directories.
func NewBinDirScanner(p *platform.Platform, logger *zap.Logger) *BinDirScanner {
	return &BinDirScanner{dirs: p.BinDirs, plat: p, logger: logger}
}

// NewBinDirScannerWithDirs creates a scanner over explicit directories (for
// testing).
func NewBinDirScannerWithDirs(dirs []string, p *platform.Platform, logger *zap.Logger) *BinDirScanner {
	return &BinDirScanner{dirs: dirs, plat: p, logger: logger}
}

func (s *BinDirScanner) Name() string {
	return "bin_directories"
}

func (s *BinDirScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	var records []domain.AppRecord

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return records, err
			}

			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				continue // Raced with deletion
			}
			if !s.plat.IsExecutable(path, info) {
				continue
			}

			records = append(records, domain.AppRecord{
				Name:         entry.Name(),
				DisplayName:  entry.Name(),
				Path:         path,
				Source:       domain.SourceBinDirectory,
				LastModified: info.ModTime(),
			})
		}
	}

	return records, nil
}

var _ domain.SourceScanner = (*BinDirScanner)(nil)
