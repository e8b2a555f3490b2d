package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lnk "github.com/parsiya/golnk"
	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// ShortcutScanner discovers applications from Windows .lnk shortcut files.
// One scanner instance covers one shortcut placement (start menu, desktop,
// common) so the resulting records carry the matching source tag.
type ShortcutScanner struct {
	dirs   []string
	source domain.Source
	plat   *platform.Platform
	logger *zap.Logger
}

// NewShortcutScanner creates a scanner over shortcut directories tagged with
// the given source.
func NewShortcutScanner(dirs []string, source domain.Source, p *platform.Platform, logger *zap.Logger) *ShortcutScanner {
	return &ShortcutScanner{dirs: dirs, source: source, plat: p, logger: logger}
}

func (s *ShortcutScanner) Name() string {
	return "shortcuts_" + string(s.source)
}

// Scan walks the directories recursively for .lnk files and resolves their
// targets. Only targets that exist and carry a recognized executable
// extension become records.
func (s *ShortcutScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	var records []domain.AppRecord

	for _, dir := range s.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Unreadable subtree, keep walking siblings
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".lnk") {
				return nil
			}

			rec, ok := s.parseShortcut(path)
			if !ok {
				return nil
			}
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return records, err
		}
	}

	return records, nil
}

// parseShortcut resolves one .lnk file. The shortcut's description field,
// when present, overrides the filename-derived name.
func (s *ShortcutScanner) parseShortcut(path string) (domain.AppRecord, bool) {
	f, err := lnk.File(path)
	if err != nil {
		s.logger.Debug("cannot parse shortcut", zap.String("path", path), zap.Error(err))
		return domain.AppRecord{}, false
	}

	target := f.LinkInfo.LocalBasePath
	if target == "" {
		target = f.LinkInfo.LocalBasePathUnicode
	}
	if target == "" {
		return domain.AppRecord{}, false
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return domain.AppRecord{}, false
	}
	if !s.plat.HasExecutableExt(target) {
		return domain.AppRecord{}, false
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if desc := strings.TrimSpace(f.StringData.NameString); desc != "" {
		name = desc
	}

	return domain.AppRecord{
		Name:         name,
		DisplayName:  name,
		Path:         target,
		Source:       s.source,
		ShortcutPath: path,
		LastModified: info.ModTime(),
	}, true
}

var _ domain.SourceScanner = (*ShortcutScanner)(nil)
