// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package xcarchive

import (
	"errors"
	"fmt"
	"os"

	"github.com/crashkit/crashsym/pkg/symbolizer"
)

var (
	// ErrIdentifierUnavailable means the extraction tool produced no
	// parseable build identifier for an artifact.
	ErrIdentifierUnavailable = errors.New("build identifier unavailable")

	// ErrIdentityMismatch means the debug symbols do not correspond to the
	// binary; resolving against them would produce wrong or silently
	// unresolved addresses.
	ErrIdentityMismatch = errors.New("debug symbols do not match binary")
)

// VerifyIdentity confirms that the debug-symbol bundle and the binary share
// one build identifier (compared case-insensitively via canonicalization)
// and returns it. This gates every symbolication run.
func VerifyIdentity(tool symbolizer.Toolchain, dsymPath, binaryPath string) (string, error) {
	for _, path := range []string{dsymPath, binaryPath} {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("identity check: %w", err)
		}
	}
	dsymID, err := tool.BuildID(dsymPath)
	if err != nil || dsymID == "" {
		return "", fmt.Errorf("%w for %v: %v", ErrIdentifierUnavailable, dsymPath, err)
	}
	binID, err := tool.BuildID(binaryPath)
	if err != nil || binID == "" {
		return "", fmt.Errorf("%w for %v: %v", ErrIdentifierUnavailable, binaryPath, err)
	}
	dsymID = symbolizer.CanonicalBuildID(dsymID)
	binID = symbolizer.CanonicalBuildID(binID)
	if dsymID != binID {
		return "", fmt.Errorf("%w: dSYM %v vs binary %v", ErrIdentityMismatch, dsymID, binID)
	}
	return dsymID, nil
}
