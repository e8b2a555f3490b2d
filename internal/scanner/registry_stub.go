//go:build !windows

package scanner

import (
	"context"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
)

// The registry scanners only exist on Windows; these stubs keep the scanner
// composition code portable. ForPlatform never selects them elsewhere.

// RegistryAppPathsScanner is a no-op outside Windows.
type RegistryAppPathsScanner struct{}

// NewRegistryAppPathsScanner creates a no-op App Paths scanner.
func NewRegistryAppPathsScanner(_ *zap.Logger) *RegistryAppPathsScanner {
	return &RegistryAppPathsScanner{}
}

func (s *RegistryAppPathsScanner) Name() string { return "registry_app_paths" }

func (s *RegistryAppPathsScanner) Scan(_ context.Context) ([]domain.AppRecord, error) {
	return nil, nil
}

// RegistryUninstallScanner is a no-op outside Windows.
type RegistryUninstallScanner struct {
	userHive bool
}

// NewRegistryUninstallScanner creates a no-op Uninstall-key scanner.
func NewRegistryUninstallScanner(userHive bool, _ *zap.Logger) *RegistryUninstallScanner {
	return &RegistryUninstallScanner{userHive: userHive}
}

func (s *RegistryUninstallScanner) Name() string {
	if s.userHive {
		return "registry_user_uninstall"
	}
	return "registry_uninstall"
}

func (s *RegistryUninstallScanner) Scan(_ context.Context) ([]domain.AppRecord, error) {
	return nil, nil
}

var (
	_ domain.SourceScanner = (*RegistryAppPathsScanner)(nil)
	_ domain.SourceScanner = (*RegistryUninstallScanner)(nil)
)
