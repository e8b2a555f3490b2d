package scanner

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// DesktopEntryScanner discovers applications from freedesktop .desktop files.
type DesktopEntryScanner struct {
	dirs   []string
	plat   *platform.Platform
	logger *zap.Logger
}

// NewDesktopEntryScanner creates a scanner over the platform's desktop-entry
// directories.
func NewDesktopEntryScanner(p *platform.Platform, logger *zap.Logger) *DesktopEntryScanner {
	return &DesktopEntryScanner{dirs: p.DesktopEntryDirs, plat: p, logger: logger}
}

// NewDesktopEntryScannerWithDirs creates a scanner over explicit directories
// (for testing).
func NewDesktopEntryScannerWithDirs(dirs []string, p *platform.Platform, logger *zap.Logger) *DesktopEntryScanner {
	return &DesktopEntryScanner{dirs: dirs, plat: p, logger: logger}
}

func (s *DesktopEntryScanner) Name() string {
	return "desktop_entries"
}

// Scan parses every .desktop file in the configured directories. A record
// requires both a Name= and a resolvable, existing Exec= target.
func (s *DesktopEntryScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	var records []domain.AppRecord

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // Directory may simply not exist on this system
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".desktop") {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			rec, ok := s.parseEntry(path)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

// parseEntry extracts Name=, Exec=, Icon= and Comment= from one file.
func (s *DesktopEntryScanner) parseEntry(path string) (domain.AppRecord, bool) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Debug("cannot open desktop entry", zap.String("path", path), zap.Error(err))
		return domain.AppRecord{}, false
	}
	defer f.Close()

	var name, execPath, icon, comment string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Name["):
			// Localized name, skip
		case strings.HasPrefix(line, "Name=") && name == "":
			name = line[len("Name="):]
		case strings.HasPrefix(line, "Exec=") && execPath == "":
			execPath = s.resolveExec(line[len("Exec="):])
		case strings.HasPrefix(line, "Icon=") && icon == "":
			icon = line[len("Icon="):]
		case strings.HasPrefix(line, "Comment=") && comment == "":
			comment = line[len("Comment="):]
		}
	}

	if name == "" || execPath == "" {
		return domain.AppRecord{}, false
	}

	rec := domain.AppRecord{
		Name:         name,
		DisplayName:  name,
		Path:         execPath,
		Source:       domain.SourceDesktopEntry,
		DesktopFile:  path,
		Description:  comment,
		Icon:         icon,
		LastModified: modTime(execPath),
	}
	return rec, true
}

// resolveExec takes the first whitespace-delimited token of an Exec= line and
// resolves it to an existing absolute path, via PATH if necessary.
func (s *DesktopEntryScanner) resolveExec(execLine string) string {
	fields := strings.Fields(execLine)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]

	if filepath.IsAbs(cmd) {
		if _, err := os.Stat(cmd); err == nil {
			return cmd
		}
		return ""
	}

	if resolved, ok := s.plat.FindExecutable(cmd); ok {
		return resolved
	}
	return ""
}

var _ domain.SourceScanner = (*DesktopEntryScanner)(nil)
