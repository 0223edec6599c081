// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report parses legacy free-text crash reports and re-renders them
// with resolved symbols. The grammar is deliberately best-effort: real-world
// reports vary, so unrecognized lines are skipped, never rejected. The only
// parse failure is wholly empty input.
package report

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/crashkit/crashsym/pkg/crash"
)

var ErrEmptyInput = errors.New("crash report is empty")

var (
	processRe        = regexp.MustCompile(`Process:\s+(\S+)\s+\[(\d+)\]`)
	versionRe        = regexp.MustCompile(`Version:\s+(.*?)\s+\((\S+)\)`)
	osVersionRe      = regexp.MustCompile(`OS Version:\s+(.*?)\s+\((\S+)\)`)
	exceptionTypeRe  = regexp.MustCompile(`Exception Type:\s+(.*)`)
	exceptionCodesRe = regexp.MustCompile(`Exception Codes:\s+(.*)`)
	triggeredRe      = regexp.MustCompile(`Triggered by Thread:\s+(\d+)`)

	imageRe  = regexp.MustCompile(`(0x[0-9a-f]+)\s+-\s+(0x[0-9a-f]+)\s+(\S+)\s+(\S+)\s+<([0-9a-fA-F-]+)>`)
	threadRe = regexp.MustCompile(`^Thread (\d+)( Crashed)?:`)
	frameRe  = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(0x[0-9a-f]+)\s+(.+)$`)
)

// Parse converts a complete free-text crash report into the internal model
// in a single forward scan. Metadata anchors that never match leave the
// corresponding field unset.
func Parse(content string) (*crash.Report, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}
	rep := &crash.Report{
		Metadata: crash.Metadata{TriggeredThread: -1},
		Lines:    strings.Split(content, "\n"),
	}
	parseMetadata(rep)
	parseImages(rep)
	parseThreads(rep)
	return rep, nil
}

func parseMetadata(rep *crash.Report) {
	meta := &rep.Metadata
	for _, line := range rep.Lines {
		switch {
		case strings.Contains(line, "Process:"):
			if m := processRe.FindStringSubmatch(line); m != nil {
				meta.Process, meta.ProcessID = m[1], m[2]
			}
		// OS Version must be probed before Version: the former contains
		// the latter as a substring.
		case strings.Contains(line, "OS Version:"):
			if m := osVersionRe.FindStringSubmatch(line); m != nil {
				meta.OSVersion, meta.OSBuild = m[1], m[2]
			}
		case strings.Contains(line, "Version:"):
			if m := versionRe.FindStringSubmatch(line); m != nil {
				meta.Version, meta.Build = m[1], m[2]
			}
		case strings.Contains(line, "Exception Type:"):
			if m := exceptionTypeRe.FindStringSubmatch(line); m != nil {
				meta.ExceptionType = strings.TrimSpace(m[1])
			}
		case strings.Contains(line, "Exception Codes:"):
			if m := exceptionCodesRe.FindStringSubmatch(line); m != nil {
				meta.ExceptionCodes = strings.TrimSpace(m[1])
			}
		case strings.Contains(line, "Triggered by Thread:"):
			if m := triggeredRe.FindStringSubmatch(line); m != nil {
				meta.TriggeredThread, _ = strconv.Atoi(m[1])
			}
		}
	}
}

// parseImages scans the section between the "Binary Images:" line and the
// first blank line. Non-matching lines inside the section are skipped.
func parseImages(rep *crash.Report) {
	inSection := false
	for _, line := range rep.Lines {
		if strings.Contains(line, "Binary Images:") {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if m := imageRe.FindStringSubmatch(line); m != nil {
			rep.AddImage(crash.BinaryImage{
				Load:    m[1],
				End:     m[2],
				Name:    m[3],
				Version: m[4],
				BuildID: strings.ToLower(m[5]),
			})
		} else if strings.TrimSpace(line) == "" {
			break
		}
	}
}

// parseThreads collects "Thread N[ Crashed]:" sections. Every frame line
// inside a section is appended in encountered order; other non-blank lines
// are ignored; a blank line closes the section.
func parseThreads(rep *crash.Report) {
	var current *crash.Thread
	for _, line := range rep.Lines {
		if m := threadRe.FindStringSubmatch(line); m != nil {
			index, _ := strconv.Atoi(m[1])
			rep.Threads = append(rep.Threads, crash.Thread{
				Index:   index,
				Crashed: m[2] != "",
			})
			current = &rep.Threads[len(rep.Threads)-1]
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if m := frameRe.FindStringSubmatch(trimmed); m != nil {
			current.Frames = append(current.Frames, crash.Frame{
				Binary:  m[2],
				Address: m[3],
				Symbol:  m[4],
			})
		} else if trimmed == "" {
			current = nil
		}
	}
}
