// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crashkit/crashsym/pkg/osutil"
)

// Apple drives the Apple command line toolchain. Tool paths and the
// per-invocation timeout are overridable via config.
type Apple struct {
	Atos      string
	Lipo      string
	Dwarfdump string
	Lldb      string
	Timeout   time.Duration
}

const defaultToolTimeout = time.Minute

func NewApple() *Apple {
	return &Apple{
		Atos:      "atos",
		Lipo:      "lipo",
		Dwarfdump: "dwarfdump",
		Lldb:      "lldb",
		Timeout:   defaultToolTimeout,
	}
}

func (t *Apple) timeout() time.Duration {
	if t.Timeout == 0 {
		return defaultToolTimeout
	}
	return t.Timeout
}

var uuidRe = regexp.MustCompile(`UUID: ([0-9A-Fa-f-]+)`)

func (t *Apple) BuildID(artifact string) (string, error) {
	out, err := osutil.RunCmd(t.timeout(), t.Dwarfdump, "--uuid", artifact)
	if err != nil {
		return "", osutil.PrependContext(fmt.Sprintf("dwarfdump %v", artifact), err)
	}
	match := uuidRe.FindSubmatch(out)
	if match == nil {
		return "", fmt.Errorf("no UUID in dwarfdump output for %v", artifact)
	}
	return CanonicalBuildID(string(match[1])), nil
}

// CanonicalBuildID lowercases an identifier, going through uuid parsing when
// the identifier is a well-formed UUID so that spacing/case variants compare
// equal. Non-UUID identifiers are lowercased as-is.
func CanonicalBuildID(id string) string {
	if parsed, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return parsed.String()
	}
	return strings.ToLower(strings.TrimSpace(id))
}

func (t *Apple) Architectures(binary string) ([]string, error) {
	out, err := osutil.RunCmd(t.timeout(), t.Lipo, "-info", binary)
	if err != nil {
		return nil, osutil.PrependContext(fmt.Sprintf("lipo %v", binary), err)
	}
	return parseLipoInfo(string(out))
}

// parseLipoInfo understands both lipo -info shapes:
//
//	Non-fat file: bin is architecture: arm64
//	Architectures in the fat file: bin are: x86_64 arm64
func parseLipoInfo(out string) ([]string, error) {
	out = strings.TrimSpace(out)
	if strings.Contains(out, "Non-fat file") {
		_, rest, ok := strings.Cut(out, "architecture: ")
		if !ok {
			return nil, fmt.Errorf("unexpected lipo output: %q", out)
		}
		return []string{strings.TrimSpace(rest)}, nil
	}
	_, rest, ok := strings.Cut(out, "are: ")
	if !ok {
		return nil, fmt.Errorf("unexpected lipo output: %q", out)
	}
	return strings.Fields(rest), nil
}

func (t *Apple) Resolve(addrs []string, arch, source, load string) ([]string, error) {
	args := []string{"-arch", arch, "-o", source, "-l", load}
	args = append(args, addrs...)
	out, err := osutil.RunCmd(t.timeout(), t.Atos, args...)
	if err != nil {
		return nil, osutil.PrependContext(fmt.Sprintf("atos -arch %v -o %v", arch, source), err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != len(addrs) {
		return nil, fmt.Errorf("atos returned %v lines for %v addresses", len(lines), len(addrs))
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

func (t *Apple) InspectAddress(binary, addr string) (string, error) {
	out, err := osutil.RunCmd(t.timeout(), t.Lldb, binary, "--batch",
		"-o", "image lookup --address "+addr,
		"-o", "quit")
	if err != nil {
		return "", osutil.PrependContext(fmt.Sprintf("lldb %v", binary), err)
	}
	return string(out), nil
}
