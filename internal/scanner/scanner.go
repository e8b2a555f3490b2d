// Package scanner implements application discovery: one scanner per data
// source, a priority-based aggregator, and a TTL scan cache.
package scanner

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// ForPlatform composes the scanner set for the detected platform. The
// composition is decided once here; scanners themselves never branch on the
// OS family again.
func ForPlatform(p *platform.Platform, logger *zap.Logger) []domain.SourceScanner {
	switch p.Family {
	case platform.FamilyWindows:
		return []domain.SourceScanner{
			NewRegistryAppPathsScanner(logger),
			NewRegistryUninstallScanner(false, logger),
			NewRegistryUninstallScanner(true, logger),
			NewShortcutScanner(p.StartMenuDirs, domain.SourceShortcutStartMenu, p, logger),
			NewShortcutScanner(p.DesktopDirs, domain.SourceShortcutDesktop, p, logger),
			NewShortcutScanner(p.CommonShortcutDirs, domain.SourceShortcutCommon, p, logger),
		}
	case platform.FamilyLinux:
		return []domain.SourceScanner{
			NewDesktopEntryScanner(p, logger),
			NewBinDirScanner(p, logger),
		}
	case platform.FamilyDarwin:
		return []domain.SourceScanner{
			NewBundleScanner(p, logger),
			NewBinDirScanner(p, logger),
		}
	}
	return nil
}

// modTime returns the file's modification time, zero on error.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
