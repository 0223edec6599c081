// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package xcarchive locates the executable binary and debug-symbol bundle
// inside an .xcarchive directory and verifies that the two belong together.
package xcarchive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"howett.net/plist"

	"github.com/crashkit/crashsym/pkg/osutil"
)

// AppInfo holds the identity fields read from the app's Info.plist.
type AppInfo struct {
	Name     string // CFBundleExecutable
	BundleID string
	Version  string
	Build    string
}

// Archive is the resolved layout of one .xcarchive.
type Archive struct {
	Path       string
	App        AppInfo
	BinaryPath string
	DSYMPath   string
}

type infoPlist struct {
	Executable string `plist:"CFBundleExecutable"`
	BundleID   string `plist:"CFBundleIdentifier"`
	Version    string `plist:"CFBundleShortVersionString"`
	Build      string `plist:"CFBundleVersion"`
}

// Load resolves an archive root: Products/Applications/<one .app>/Info.plist
// yields the app identity and executable, dSYMs/ yields the debug bundle
// (exact "<app>.app.dSYM" first, else the first .dSYM containing the app
// name). All misses report wrapped fs.ErrNotExist.
func Load(root string) (*Archive, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("archive %v: %w", root, err)
	}
	appPath, err := findApp(filepath.Join(root, "Products", "Applications"))
	if err != nil {
		return nil, err
	}
	app, err := readInfoPlist(filepath.Join(appPath, "Info.plist"))
	if err != nil {
		return nil, err
	}
	binary := filepath.Join(appPath, app.Name)
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("app binary %v: %w", binary, err)
	}
	dsym, err := findDSYM(filepath.Join(root, "dSYMs"), app.Name)
	if err != nil {
		return nil, err
	}
	return &Archive{
		Path:       root,
		App:        app,
		BinaryPath: binary,
		DSYMPath:   dsym,
	}, nil
}

func findApp(products string) (string, error) {
	names, err := osutil.ListDir(products)
	if err != nil {
		return "", fmt.Errorf("applications dir %v: %w", products, err)
	}
	var apps []string
	for _, name := range names {
		if strings.HasSuffix(name, ".app") {
			apps = append(apps, name)
		}
	}
	if len(apps) == 0 {
		return "", fmt.Errorf("no .app in %v: %w", products, os.ErrNotExist)
	}
	sort.Strings(apps)
	return filepath.Join(products, apps[0]), nil
}

func readInfoPlist(path string) (AppInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppInfo{}, fmt.Errorf("Info.plist: %w", err)
	}
	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return AppInfo{}, fmt.Errorf("failed to parse %v: %w", path, err)
	}
	if info.Executable == "" {
		return AppInfo{}, fmt.Errorf("%v has no CFBundleExecutable", path)
	}
	return AppInfo{
		Name:     info.Executable,
		BundleID: info.BundleID,
		Version:  info.Version,
		Build:    info.Build,
	}, nil
}

func findDSYM(dsyms, appName string) (string, error) {
	exact := filepath.Join(dsyms, appName+".app.dSYM")
	if osutil.IsExist(exact) {
		return exact, nil
	}
	names, err := osutil.ListDir(dsyms)
	if err != nil {
		return "", fmt.Errorf("dSYMs dir %v: %w", dsyms, err)
	}
	for _, name := range names {
		if strings.HasSuffix(name, ".dSYM") && strings.Contains(name, appName) {
			return filepath.Join(dsyms, name), nil
		}
	}
	return "", fmt.Errorf("no dSYM for %v in %v: %w", appName, dsyms, os.ErrNotExist)
}
