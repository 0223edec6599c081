// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symbolicate runs the whole pipeline for one input report:
// identity verification, parsing/normalization, symbol resolution and
// rendering. A Session owns the internal model and the symbol cache.
package symbolicate

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/crashkit/crashsym/pkg/log"
	"github.com/crashkit/crashsym/pkg/metrickit"
	"github.com/crashkit/crashsym/pkg/osutil"
	"github.com/crashkit/crashsym/pkg/report"
	"github.com/crashkit/crashsym/pkg/symbolizer"
	"github.com/crashkit/crashsym/pkg/xcarchive"
)

// Session binds an archive to a toolchain for one or more symbolication
// runs. The symbol cache persists for the lifetime of the Session, not just
// one run: consecutive calls on the same Session share resolved symbols.
// Callers wanting cache isolation create a new Session.
//
// A Session is single-threaded; there is no internal parallelism and no
// cancellation. Embedders wanting a responsive UI run the whole session on
// a worker goroutine.
type Session struct {
	Archive *xcarchive.Archive
	Tool    symbolizer.Toolchain

	// Demangle applies C++/Rust demangling to resolved symbols.
	Demangle bool
	// Progress, when set, is invoked synchronously with step descriptions.
	// Observability only; never required for correctness.
	Progress func(msg string)

	cache  *symbolizer.Cache
	result string
}

func NewSession(archive *xcarchive.Archive, tool symbolizer.Toolchain) *Session {
	return &Session{
		Archive: archive,
		Tool:    tool,
		cache:   new(symbolizer.Cache),
	}
}

func (s *Session) progressf(format string, args ...interface{}) {
	log.Logf(1, format, args...)
	if s.Progress != nil {
		s.Progress(fmt.Sprintf(format, args...))
	}
}

func (s *Session) resolver() *symbolizer.Resolver {
	res := symbolizer.NewResolver(s.Tool, s.cache)
	res.Demangle = s.Demangle
	res.Progress = s.Progress
	return res
}

// verify gates every run on the dSYM/binary identity check.
func (s *Session) verify() (string, error) {
	s.progressf("verifying dSYM identity for %v", s.Archive.App.Name)
	id, err := xcarchive.VerifyIdentity(s.Tool, s.Archive.DSYMPath, s.Archive.BinaryPath)
	if err != nil {
		return "", err
	}
	s.progressf("build identifier %v", id)
	return id, nil
}

// architectures asks the toolchain; any failure falls back to the fixed
// default candidate list.
func (s *Session) architectures() []string {
	archs, err := s.Tool.Architectures(s.Archive.BinaryPath)
	if err != nil || len(archs) == 0 {
		s.progressf("architecture discovery failed (%v), using defaults", err)
		return symbolizer.DefaultArchitectures
	}
	s.progressf("architectures: %v", strings.Join(archs, ", "))
	return archs
}

// SymbolicateCrash runs the legacy path: parse the free-text report,
// batch-resolve the target binary's frames and re-render the report with a
// summary block appended.
func (s *Session) SymbolicateCrash(content []byte) (string, error) {
	id, err := s.verify()
	if err != nil {
		return "", err
	}
	rep, err := report.Parse(sanitize(content))
	if err != nil {
		return "", err
	}
	s.progressf("parsed report: %v images, %v threads", len(rep.Images), len(rep.Threads))

	target := s.Archive.App.Name
	img := rep.FindImage(target)
	if img == nil {
		return "", fmt.Errorf("%w: %v", symbolizer.ErrNoLoadAddress, target)
	}
	archs := s.architectures()
	stats, err := s.resolver().ResolveReport(rep, target, s.Archive.DSYMPath, s.Archive.BinaryPath, archs)
	if err != nil {
		return "", err
	}
	s.progressf("resolved %v of %v frames", stats.Resolved, stats.TotalFrames)

	s.result = report.Render(rep, target, func(addr string) (string, bool) {
		return s.cache.Get(symbolizer.Key{Addr: addr})
	}, &report.Summary{
		AppName:       target,
		BuildID:       id,
		DSYMPath:      s.Archive.DSYMPath,
		BinaryPath:    s.Archive.BinaryPath,
		LoadAddress:   img.Load,
		EndAddress:    img.End,
		Architectures: archs,
		TotalFrames:   stats.TotalFrames,
		Resolved:      stats.Resolved,
		Failed:        stats.Failed,
	})
	return s.result, nil
}

// SymbolicateDiagnostic runs the MetricKit path: normalize the diagnostic
// JSON, resolve the target binary's frames one by one with the multi-source
// fallback, and render the normalized report.
func (s *Session) SymbolicateDiagnostic(data []byte) (string, error) {
	if _, err := s.verify(); err != nil {
		return "", err
	}
	rep, err := metrickit.Normalize(data)
	if err != nil {
		return "", err
	}
	s.progressf("normalized diagnostic: %v images, %v threads", len(rep.Images), len(rep.Threads))

	target := s.Archive.App.Name
	archs := s.architectures()
	res := s.resolver()
	for ti := range rep.Threads {
		for fi := range rep.Threads[ti].Frames {
			frame := &rep.Threads[ti].Frames[fi]
			if !strings.Contains(frame.Binary, target) {
				continue
			}
			img := rep.FindImage(frame.Binary)
			if img == nil {
				continue
			}
			res.ResolveFrame(frame, img, s.Archive.DSYMPath, s.Archive.BinaryPath, archs)
		}
	}
	s.result = metrickit.RenderNormalized(rep)
	return s.result, nil
}

// ConvertDiagnostic rewrites a fixed-shape MetricKit payload into the
// legacy layout without any symbolication.
func (s *Session) ConvertDiagnostic(data []byte) (string, error) {
	out, err := metrickit.Convert(data, metrickit.AppIdentity{
		Name:     s.Archive.App.Name,
		BundleID: s.Archive.App.BundleID,
		Version:  s.Archive.App.Version,
		Build:    s.Archive.App.Build,
	})
	if err != nil {
		return "", err
	}
	s.result = out
	return out, nil
}

// WriteResult persists the last rendered report as plain UTF-8 text,
// creating the destination directory when needed.
func (s *Session) WriteResult(path string) error {
	if s.result == "" {
		return fmt.Errorf("no result to write")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := osutil.MkdirAll(dir); err != nil {
			return err
		}
	}
	return osutil.WriteFile(path, []byte(s.result))
}

// sanitize turns arbitrary report bytes into valid UTF-8, the moral
// equivalent of the reference's Latin-1 fallback: weird bytes degrade to
// replacement runes instead of failing the whole run.
func sanitize(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
