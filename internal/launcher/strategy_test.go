package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// TestStrategiesFor_Ordering verifies elevation comes first and direct last
// on every family.
func TestStrategiesFor_Ordering(t *testing.T) {
	for _, family := range []platform.Family{
		platform.FamilyWindows, platform.FamilyLinux, platform.FamilyDarwin,
	} {
		strats := StrategiesFor(&platform.Platform{Family: family})
		assert.Len(t, strats, 3, "family %s", family)
		assert.Equal(t, "direct", strats[len(strats)-1].Name(), "family %s", family)
	}

	assert.Empty(t, StrategiesFor(&platform.Platform{Family: platform.FamilyUnknown}))
}

// TestDirectStrategy_RejectsElevated verifies direct never handles elevated
// specs, leaving them to the elevation strategies.
func TestDirectStrategy_RejectsElevated(t *testing.T) {
	s := newDirectStrategy()

	assert.True(t, s.CanHandle(domain.LaunchSpec{}))
	assert.False(t, s.CanHandle(domain.LaunchSpec{Elevated: true}))
	assert.True(t, s.Available())
}

// TestDesktopEntryStrategy_Routing verifies only desktop-entry records with
// a source file are handled.
func TestDesktopEntryStrategy_Routing(t *testing.T) {
	s := newDesktopEntryStrategy()

	assert.True(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{
		Source:      domain.SourceDesktopEntry,
		DesktopFile: "/usr/share/applications/editor.desktop",
	}}))
	assert.False(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{
		Source: domain.SourceBinDirectory,
	}}))
	assert.False(t, s.CanHandle(domain.LaunchSpec{
		Elevated: true,
		Record: domain.AppRecord{
			Source:      domain.SourceDesktopEntry,
			DesktopFile: "/usr/share/applications/editor.desktop",
		},
	}))
}

// TestShortcutStrategy_Routing verifies only shortcut-backed records are
// handled.
func TestShortcutStrategy_Routing(t *testing.T) {
	s := newShortcutStrategy()

	assert.True(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{
		ShortcutPath: `C:\Users\me\Desktop\App.lnk`,
	}}))
	assert.False(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{}}))
}

// TestBundleOpenStrategy_Routing verifies only .app bundle records are
// handled.
func TestBundleOpenStrategy_Routing(t *testing.T) {
	s := newBundleOpenStrategy()

	assert.True(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{
		InstallLocation: "/Applications/Editor.app",
	}}))
	assert.False(t, s.CanHandle(domain.LaunchSpec{Record: domain.AppRecord{
		InstallLocation: "/usr/local",
	}}))
}

// TestElevatedStrategies_HandleOnlyElevated verifies elevation strategies
// are scoped to elevated specs.
func TestElevatedStrategies_HandleOnlyElevated(t *testing.T) {
	for _, s := range []domain.LaunchStrategy{
		newElevatedRunasStrategy(),
		newElevatedPkexecStrategy(),
		newElevatedOsascriptStrategy(),
	} {
		assert.True(t, s.CanHandle(domain.LaunchSpec{Elevated: true}), s.Name())
		assert.False(t, s.CanHandle(domain.LaunchSpec{}), s.Name())
	}
}

func TestQuoteJoin(t *testing.T) {
	line := quoteJoin(`C:\Program Files\App\app.exe`, []string{"--flag", "a b"})
	assert.Equal(t, `"C:\Program Files\App\app.exe" "--flag" "a b"`, line)
}
