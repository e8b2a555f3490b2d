package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"howett.net/plist"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// bundleInfo is the subset of Info.plist keys the scanner cares about.
type bundleInfo struct {
	DisplayName string `plist:"CFBundleDisplayName"`
	BundleName  string `plist:"CFBundleName"`
	Executable  string `plist:"CFBundleExecutable"`
	Version     string `plist:"CFBundleShortVersionString"`
	Identifier  string `plist:"CFBundleIdentifier"`
}

// BundleScanner discovers applications from macOS .app bundles. The bundle's
// declared executable is resolved under Contents/MacOS; display name prefers
// CFBundleDisplayName, then CFBundleName, then the bundle's filename stem.
type BundleScanner struct {
	dirs   []string
	logger *zap.Logger
}

// NewBundleScanner creates a scanner over the platform's bundle directories.
func NewBundleScanner(p *platform.Platform, logger *zap.Logger) *BundleScanner {
	return &BundleScanner{dirs: p.BundleDirs, logger: logger}
}

// NewBundleScannerWithDirs creates a scanner over explicit directories (for
// testing).
func NewBundleScannerWithDirs(dirs []string, logger *zap.Logger) *BundleScanner {
	return &BundleScanner{dirs: dirs, logger: logger}
}

func (s *BundleScanner) Name() string {
	return "application_bundles"
}

func (s *BundleScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	var records []domain.AppRecord

	for _, dir := range s.dirs {
		bundles, err := filepath.Glob(filepath.Join(dir, "*.app"))
		if err != nil {
			continue
		}

		for _, bundle := range bundles {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			rec, ok := s.parseBundle(bundle)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

func (s *BundleScanner) parseBundle(bundlePath string) (domain.AppRecord, bool) {
	f, err := os.Open(filepath.Join(bundlePath, "Contents", "Info.plist"))
	if err != nil {
		return domain.AppRecord{}, false
	}
	defer f.Close()

	var info bundleInfo
	if err := plist.NewDecoder(f).Decode(&info); err != nil {
		s.logger.Debug("cannot decode Info.plist",
			zap.String("bundle", bundlePath),
			zap.Error(err))
		return domain.AppRecord{}, false
	}
	if info.Executable == "" {
		return domain.AppRecord{}, false
	}

	execPath := filepath.Join(bundlePath, "Contents", "MacOS", info.Executable)
	if _, err := os.Stat(execPath); err != nil {
		return domain.AppRecord{}, false
	}

	stem := strings.TrimSuffix(filepath.Base(bundlePath), ".app")
	displayName := info.DisplayName
	if displayName == "" {
		displayName = info.BundleName
	}
	if displayName == "" {
		displayName = stem
	}

	return domain.AppRecord{
		Name:            stem,
		DisplayName:     displayName,
		Path:            execPath,
		Source:          domain.SourceApplicationsDir,
		InstallLocation: bundlePath,
		Version:         info.Version,
		LastModified:    modTime(execPath),
	}, true
}

var _ domain.SourceScanner = (*BundleScanner)(nil)
