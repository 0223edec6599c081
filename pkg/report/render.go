// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"fmt"
	"strings"

	"github.com/crashkit/crashsym/pkg/crash"
)

// Summary describes one symbolication run for the block appended to the
// rendered report.
type Summary struct {
	AppName       string
	BuildID       string
	DSYMPath      string
	BinaryPath    string
	LoadAddress   string
	EndAddress    string
	Architectures []string
	TotalFrames   int
	Resolved      int
	Failed        int
}

// Render reproduces every original line unchanged except frame lines of the
// target binary for which lookup yields a resolved symbol; those are
// rewritten as "index binary address symbol". A summary block is appended.
func Render(rep *crash.Report, target string, lookup func(addr string) (string, bool), summary *Summary) string {
	buf := new(strings.Builder)
	for i, line := range rep.Lines {
		if m := frameRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil && strings.Contains(m[2], target) {
			if symbol, ok := lookup(m[3]); ok {
				line = fmt.Sprintf("%v %v %v %v", m[1], m[2], m[3], symbol)
			}
		}
		buf.WriteString(line)
		if i != len(rep.Lines)-1 {
			buf.WriteByte('\n')
		}
	}
	if summary != nil {
		writeSummary(buf, summary)
	}
	return buf.String()
}

func writeSummary(buf *strings.Builder, s *Summary) {
	fmt.Fprintf(buf, "\n\nSymbolication Summary:\n")
	fmt.Fprintf(buf, "App Name: %v\n", s.AppName)
	fmt.Fprintf(buf, "UUID: %v\n", s.BuildID)
	fmt.Fprintf(buf, "dSYM Path: %v\n", s.DSYMPath)
	fmt.Fprintf(buf, "Binary Path: %v\n", s.BinaryPath)
	fmt.Fprintf(buf, "Load Address: %v\n", s.LoadAddress)
	fmt.Fprintf(buf, "End Address: %v\n", s.EndAddress)
	fmt.Fprintf(buf, "Architectures: %v\n", strings.Join(s.Architectures, ", "))
	fmt.Fprintf(buf, "Total Frames: %v\n", s.TotalFrames)
	fmt.Fprintf(buf, "Resolved: %v\n", s.Resolved)
	fmt.Fprintf(buf, "Failed: %v\n", s.Failed)
}
