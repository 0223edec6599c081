// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package xcarchive

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInfoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>MyApp</string>
	<key>CFBundleIdentifier</key>
	<string>com.example.myapp</string>
	<key>CFBundleShortVersionString</key>
	<string>1.2.3</string>
	<key>CFBundleVersion</key>
	<string>456</string>
</dict>
</plist>
`

// makeArchive lays out a minimal .xcarchive in a temp dir. dsymName controls
// the bundle name under dSYMs/ ("" skips creating it).
func makeArchive(t *testing.T, dsymName string) string {
	t.Helper()
	root := t.TempDir()
	appDir := filepath.Join(root, "Products", "Applications", "MyApp.app")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "Info.plist"), []byte(testInfoPlist), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "MyApp"), []byte("binary"), 0755))
	dsyms := filepath.Join(root, "dSYMs")
	require.NoError(t, os.MkdirAll(dsyms, 0755))
	if dsymName != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dsyms, dsymName), 0755))
	}
	return root
}

func TestLoad(t *testing.T) {
	root := makeArchive(t, "MyApp.app.dSYM")
	arch, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, AppInfo{
		Name:     "MyApp",
		BundleID: "com.example.myapp",
		Version:  "1.2.3",
		Build:    "456",
	}, arch.App)
	assert.Equal(t, filepath.Join(root, "Products", "Applications", "MyApp.app", "MyApp"), arch.BinaryPath)
	assert.Equal(t, filepath.Join(root, "dSYMs", "MyApp.app.dSYM"), arch.DSYMPath)
}

func TestLoadFuzzyDSYMName(t *testing.T) {
	// No exact "<app>.app.dSYM"; a bundle whose name contains the app name
	// still matches.
	root := makeArchive(t, "MyApp-prod.dSYM")
	arch, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dSYMs", "MyApp-prod.dSYM"), arch.DSYMPath)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.xcarchive"))
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("no app bundle", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "Products", "Applications"), 0755))
		_, err := Load(root)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("missing binary", func(t *testing.T) {
		root := makeArchive(t, "MyApp.app.dSYM")
		require.NoError(t, os.Remove(
			filepath.Join(root, "Products", "Applications", "MyApp.app", "MyApp")))
		_, err := Load(root)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("missing dsym", func(t *testing.T) {
		root := makeArchive(t, "")
		_, err := Load(root)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("unrelated dsym only", func(t *testing.T) {
		root := makeArchive(t, "OtherApp.app.dSYM")
		_, err := Load(root)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})
}
