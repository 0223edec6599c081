// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symbolizer resolves raw crash addresses to source-level symbols by
// driving an external toolchain (atos/lipo/dwarfdump/lldb or equivalents).
// Results are cached for the lifetime of the owning session.
package symbolizer

// Toolchain is the external address-to-symbol capability the resolver
// depends on. Implementations orchestrate command line tools; tests
// substitute fakes so that resolution logic runs without any processes.
type Toolchain interface {
	// BuildID extracts the unique build identifier (UUID, lowercased)
	// of a binary or debug-symbol bundle.
	BuildID(artifact string) (string, error)

	// Architectures lists the architectures the binary was built for,
	// in preference order.
	Architectures(binary string) ([]string, error)

	// Resolve maps addresses to symbols against source (a debug-symbol
	// bundle or a raw binary) loaded at load, for the given architecture.
	// Order-preserving: result[i] corresponds to addrs[i].
	Resolve(addrs []string, arch, source, load string) ([]string, error)

	// InspectAddress returns the free-text module report for an address,
	// which may contain a "Summary: <text>" line.
	InspectAddress(binary, addr string) (string, error)
}

// DefaultArchitectures is the candidate list used when the toolchain cannot
// report what the binary was built for.
var DefaultArchitectures = []string{"arm64e", "arm64", "x86_64"}

// Unresolved is the placeholder atos prints for addresses it cannot map.
const Unresolved = "??"

// UnknownSymbol marks frames that no source could resolve and that carried
// no symbol text of their own.
const UnknownSymbol = "<unknown>"
