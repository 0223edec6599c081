// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package crash defines the internal model shared by the legacy crash-report
// parser and the MetricKit diagnostic normalizer: binary images, stack
// frames, threads and report metadata. The model is rebuilt from scratch for
// every input report and owned by a single symbolication session.
package crash

import (
	"fmt"
	"strconv"
	"strings"
)

// BinaryImage describes one loaded binary from a crash report.
// Addresses are kept as the hex strings seen in (or synthesized for) the
// report, so that re-rendered output matches the input byte for byte.
type BinaryImage struct {
	Name    string
	Load    string // base address, e.g. "0x104e8c000"
	End     string
	Version string
	BuildID string // UUID, lowercased
	Arch    string
}

// Frame is a single stack frame. Symbol initially holds the report's own
// guess (possibly empty) and is overwritten with the resolved symbol text.
// Depth is non-zero only for MetricKit call trees; legacy frames are flat.
type Frame struct {
	Binary  string
	Address string
	Offset  uint64 // offset into the binary's text segment, 0 if absent
	Symbol  string
	Depth   int
}

// Thread is an ordered frame list, outer frames first.
type Thread struct {
	Index   int
	Crashed bool
	Frames  []Frame
}

// Metadata holds the optional header fields of a report. Absent fields stay
// zero; placeholder substitution happens at render time, not here.
// TriggeredThread is -1 when the report did not name a crashed thread.
type Metadata struct {
	Process         string
	ProcessID       string
	BundleID        string
	Version         string
	Build           string
	OSVersion       string
	OSBuild         string
	ExceptionType   string
	ExceptionCodes  string
	Signal          string
	TriggeredThread int
	Timestamp       string
	Device          string
}

// Report is the normalized form of one crash report.
type Report struct {
	Metadata Metadata
	Images   []BinaryImage
	Threads  []Thread
	// Lines preserves the original report text for the legacy renderer,
	// which must reproduce every non-frame line unchanged.
	Lines []string
}

// AddImage records an image, deduplicating by (name, build id).
// Returns the stored image.
func (r *Report) AddImage(img BinaryImage) *BinaryImage {
	for i := range r.Images {
		if r.Images[i].Name == img.Name && r.Images[i].BuildID == img.BuildID {
			return &r.Images[i]
		}
	}
	r.Images = append(r.Images, img)
	return &r.Images[len(r.Images)-1]
}

// FindImage returns the first image whose name contains name, mirroring the
// loose matching crash reports need (image names may carry path prefixes).
func (r *Report) FindImage(name string) *BinaryImage {
	for i := range r.Images {
		if strings.Contains(r.Images[i].Name, name) {
			return &r.Images[i]
		}
	}
	return nil
}

// ParseAddr parses a hex address with or without the 0x prefix.
func ParseAddr(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return v, nil
}

// FormatAddr renders an address the way Apple reports do.
func FormatAddr(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
