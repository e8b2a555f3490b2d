//go:build windows

package scanner

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"

	"github.com/summerlab/appagent/internal/domain"
)

const (
	appPathsKey  = `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`
	uninstallKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`
)

// RegistryAppPathsScanner discovers applications from the App Paths registry
// keys of both the machine and the current-user hive.
type RegistryAppPathsScanner struct {
	logger *zap.Logger
}

// NewRegistryAppPathsScanner creates an App Paths registry scanner.
func NewRegistryAppPathsScanner(logger *zap.Logger) *RegistryAppPathsScanner {
	return &RegistryAppPathsScanner{logger: logger}
}

func (s *RegistryAppPathsScanner) Name() string {
	return "registry_app_paths"
}

func (s *RegistryAppPathsScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	var records []domain.AppRecord
	var lastErr error

	for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
		recs, err := s.scanHive(ctx, root)
		records = append(records, recs...)
		if err != nil {
			lastErr = err
		}
	}

	return records, lastErr
}

func (s *RegistryAppPathsScanner) scanHive(ctx context.Context, root registry.Key) ([]domain.AppRecord, error) {
	key, err := registry.OpenKey(root, appPathsKey, registry.READ)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var records []domain.AppRecord
	for _, sub := range names {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if !strings.HasSuffix(strings.ToLower(sub), ".exe") {
			continue
		}

		appKey, err := registry.OpenKey(root, appPathsKey+`\`+sub, registry.READ)
		if err != nil {
			continue
		}

		exePath, _, err := appKey.GetStringValue("")
		if err != nil || exePath == "" {
			appKey.Close()
			continue
		}
		exePath = strings.Trim(exePath, `"`)
		if _, statErr := os.Stat(exePath); statErr != nil {
			appKey.Close()
			continue
		}

		name := sub[:len(sub)-len(".exe")]
		displayName := name
		if friendly, _, err := appKey.GetStringValue("FriendlyAppName"); err == nil && friendly != "" {
			displayName = friendly
		}
		appKey.Close()

		records = append(records, domain.AppRecord{
			Name:         name,
			DisplayName:  displayName,
			Path:         exePath,
			Source:       domain.SourceRegistryAppPaths,
			LastModified: modTime(exePath),
		})
	}

	return records, nil
}

// RegistryUninstallScanner discovers applications from the Uninstall registry
// keys, either the machine hive or the current-user hive.
type RegistryUninstallScanner struct {
	userHive bool
	logger   *zap.Logger
}

// NewRegistryUninstallScanner creates an Uninstall-key scanner. userHive
// selects HKCU over HKLM and tags records accordingly.
func NewRegistryUninstallScanner(userHive bool, logger *zap.Logger) *RegistryUninstallScanner {
	return &RegistryUninstallScanner{userHive: userHive, logger: logger}
}

func (s *RegistryUninstallScanner) Name() string {
	if s.userHive {
		return "registry_user_uninstall"
	}
	return "registry_uninstall"
}

func (s *RegistryUninstallScanner) source() domain.Source {
	if s.userHive {
		return domain.SourceRegistryUserUninstall
	}
	return domain.SourceRegistryUninstall
}

func (s *RegistryUninstallScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	root := registry.Key(registry.LOCAL_MACHINE)
	if s.userHive {
		root = registry.CURRENT_USER
	}

	key, err := registry.OpenKey(root, uninstallKey, registry.READ)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var records []domain.AppRecord
	for _, sub := range names {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		entryKey, err := registry.OpenKey(root, uninstallKey+`\`+sub, registry.READ)
		if err != nil {
			continue
		}
		rec, ok := s.parseEntry(entryKey)
		entryKey.Close()
		if ok {
			records = append(records, rec)
		}
	}

	return records, nil
}

func (s *RegistryUninstallScanner) parseEntry(key registry.Key) (domain.AppRecord, bool) {
	displayName, _, err := key.GetStringValue("DisplayName")
	if err != nil || displayName == "" {
		return domain.AppRecord{}, false
	}

	exePath := resolveUninstallTarget(key)
	if exePath == "" {
		return domain.AppRecord{}, false
	}

	installLocation, _, _ := key.GetStringValue("InstallLocation")
	publisher, _, _ := key.GetStringValue("Publisher")
	version, _, _ := key.GetStringValue("DisplayVersion")

	return domain.AppRecord{
		Name:            displayName,
		DisplayName:     displayName,
		Path:            exePath,
		Source:          s.source(),
		InstallLocation: installLocation,
		Publisher:       publisher,
		Version:         version,
		LastModified:    modTime(exePath),
	}, true
}

// resolveUninstallTarget extracts an existing executable path from an
// Uninstall entry, preferring DisplayIcon (with its ",<index>" suffix
// stripped) over a DisplayName-derived path under InstallLocation.
func resolveUninstallTarget(key registry.Key) string {
	if icon, _, err := key.GetStringValue("DisplayIcon"); err == nil && icon != "" {
		if idx := strings.LastIndex(icon, ","); idx > 0 {
			icon = icon[:idx]
		}
		icon = strings.Trim(strings.TrimSpace(icon), `"`)
		if strings.HasSuffix(strings.ToLower(icon), ".exe") {
			if _, err := os.Stat(icon); err == nil {
				return icon
			}
		}
	}

	if loc, _, err := key.GetStringValue("InstallLocation"); err == nil && loc != "" {
		if name, _, err := key.GetStringValue("DisplayName"); err == nil {
			candidate := loc + `\` + name + ".exe"
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return ""
}

var (
	_ domain.SourceScanner = (*RegistryAppPathsScanner)(nil)
	_ domain.SourceScanner = (*RegistryUninstallScanner)(nil)
)
