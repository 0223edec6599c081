// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"github.com/crashkit/crashsym/pkg/crash"
	"github.com/crashkit/crashsym/pkg/log"
)

// Resolver drives symbol resolution across candidate architectures and
// candidate symbol sources, consulting and populating the cache.
// Per-address failures are absorbed and degrade to the original symbol text;
// only structural problems (missing paths, missing load address) error out.
type Resolver struct {
	Tool     Toolchain
	Cache    *Cache
	Demangle bool
	// Progress, when set, receives human-readable step descriptions.
	// Invoked synchronously; observability only.
	Progress func(msg string)
}

// Stats summarizes one resolution pass. TotalFrames counts every frame in
// the report; Failed covers frames that kept their original text.
type Stats struct {
	TotalFrames int
	Resolved    int
	Failed      int
}

var ErrNoSymbolSource = errors.New("debug-symbol and binary paths are required")

// ErrNoLoadAddress means the report's image table has no entry for the
// target binary, so there is no base address to resolve against.
var ErrNoLoadAddress = errors.New("load address for target binary not found in report")

func NewResolver(tool Toolchain, cache *Cache) *Resolver {
	if cache == nil {
		cache = new(Cache)
	}
	return &Resolver{Tool: tool, Cache: cache}
}

func (r *Resolver) progressf(format string, args ...interface{}) {
	log.Logf(2, format, args...)
	if r.Progress != nil {
		r.Progress(fmt.Sprintf(format, args...))
	}
}

// Accepted reports whether symbol is a real resolution for addr: non-empty,
// not the tool's unresolved placeholder, and not an echo of the queried
// address (which would mean the tool gave up and printed the input back).
func Accepted(symbol, addr string) bool {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || symbol == Unresolved {
		return false
	}
	return !strings.Contains(symbol, addr)
}

func (r *Resolver) finish(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if r.Demangle {
		symbol = demangle.Filter(symbol)
	}
	return symbol
}

// ResolveReport symbolizes all frames of the target binary in a legacy
// report. Resolution is batched: one toolchain invocation per architecture
// per source for all still-unresolved addresses, so process overhead scales
// with (architectures x sources), not frame count.
func (r *Resolver) ResolveReport(rep *crash.Report, target, dsym, bin string, archs []string) (*Stats, error) {
	if dsym == "" || bin == "" {
		return nil, ErrNoSymbolSource
	}
	img := rep.FindImage(target)
	if img == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoLoadAddress, target)
	}
	if len(archs) == 0 {
		archs = DefaultArchitectures
	}

	pending := r.collectUncached(rep, target)
	r.progressf("resolving %v distinct addresses for %v at %v", len(pending), target, img.Load)
	for _, arch := range archs {
		if len(pending) == 0 {
			break
		}
		for _, source := range []string{dsym, bin} {
			if len(pending) == 0 {
				break
			}
			pending = r.resolveBatch(pending, arch, source, img.Load)
		}
	}

	stats := new(Stats)
	for ti := range rep.Threads {
		for fi := range rep.Threads[ti].Frames {
			frame := &rep.Threads[ti].Frames[fi]
			stats.TotalFrames++
			if !strings.Contains(frame.Binary, target) {
				continue
			}
			if sym, ok := r.Cache.Get(Key{Addr: frame.Address}); ok {
				frame.Symbol = sym
				stats.Resolved++
			}
		}
	}
	stats.Failed = stats.TotalFrames - stats.Resolved
	return stats, nil
}

// collectUncached returns the distinct target-binary addresses that are not
// already in the cache, in first-seen order.
func (r *Resolver) collectUncached(rep *crash.Report, target string) []string {
	var pending []string
	seen := make(map[string]bool)
	for _, thread := range rep.Threads {
		for _, frame := range thread.Frames {
			if !strings.Contains(frame.Binary, target) || seen[frame.Address] {
				continue
			}
			seen[frame.Address] = true
			if _, ok := r.Cache.Get(Key{Addr: frame.Address}); !ok {
				pending = append(pending, frame.Address)
			}
		}
	}
	return pending
}

// resolveBatch issues one batched lookup and caches accepted results.
// Returns the addresses still unresolved. Tool failures are absorbed:
// a failing source simply resolves nothing.
func (r *Resolver) resolveBatch(addrs []string, arch, source, load string) []string {
	symbols, err := r.Tool.Resolve(addrs, arch, source, load)
	if err != nil {
		r.progressf("source %v (%v) failed: %v", source, arch, err)
		return addrs
	}
	if len(symbols) != len(addrs) {
		r.progressf("source %v (%v) returned %v symbols for %v addresses, ignoring",
			source, arch, len(symbols), len(addrs))
		return addrs
	}
	var still []string
	for i, symbol := range symbols {
		if Accepted(symbol, addrs[i]) {
			r.Cache.Put(Key{Addr: addrs[i]}, r.finish(symbol))
		} else {
			still = append(still, addrs[i])
		}
	}
	r.progressf("source %v (%v): %v of %v resolved", source, arch, len(addrs)-len(still), len(addrs))
	return still
}

var summaryRe = regexp.MustCompile(`Summary:\s*(.+)`)

// ResolveFrame symbolizes one MetricKit frame with the three-level fallback:
// debug-symbol bundle, raw binary, then the module inspection tool's Summary
// line. The cache key carries (relative address, arch, load address) because
// MetricKit runs mix images with different bases. Returns whether the frame
// got a real symbol; on failure the frame keeps its own text or gets the
// unknown-symbol marker.
func (r *Resolver) ResolveFrame(frame *crash.Frame, img *crash.BinaryImage, dsym, bin string, archs []string) bool {
	if len(archs) == 0 {
		archs = DefaultArchitectures
	}
	rel := relativeAddr(frame.Address, img.Load)
	// Consult every candidate key before any external invocation: a symbol
	// cached under a later architecture must short-circuit the whole chain.
	keys := []Key{{Addr: rel, Load: img.Load}}
	for _, arch := range archs {
		keys = append(keys, Key{Addr: rel, Arch: arch, Load: img.Load})
	}
	for _, key := range keys {
		if sym, ok := r.Cache.Get(key); ok {
			frame.Symbol = sym
			return true
		}
	}
	for _, arch := range archs {
		key := Key{Addr: rel, Arch: arch, Load: img.Load}
		for _, source := range []string{dsym, bin} {
			symbols, err := r.Tool.Resolve([]string{frame.Address}, arch, source, img.Load)
			if err != nil || len(symbols) != 1 {
				continue
			}
			if Accepted(symbols[0], frame.Address) {
				sym := r.finish(symbols[0])
				r.Cache.Put(key, sym)
				frame.Symbol = sym
				r.progressf("frame %v resolved via %v (%v): %v", frame.Address, source, arch, sym)
				return true
			}
		}
	}
	if out, err := r.Tool.InspectAddress(bin, frame.Address); err == nil {
		if match := summaryRe.FindStringSubmatch(out); match != nil {
			if sym := strings.TrimSpace(match[1]); Accepted(sym, frame.Address) {
				sym = r.finish(sym)
				r.Cache.Put(Key{Addr: rel, Load: img.Load}, sym)
				frame.Symbol = sym
				r.progressf("frame %v resolved via module inspection: %v", frame.Address, sym)
				return true
			}
		}
	}
	if strings.TrimSpace(frame.Symbol) == "" {
		frame.Symbol = UnknownSymbol
	}
	r.progressf("frame %v unresolved, keeping %q", frame.Address, frame.Symbol)
	return false
}

// relativeAddr computes addr-load as a hex string; falls back to the
// absolute address when either side does not parse.
func relativeAddr(addr, load string) string {
	av, err1 := crash.ParseAddr(addr)
	lv, err2 := crash.ParseAddr(load)
	if err1 != nil || err2 != nil || av < lv {
		return addr
	}
	return crash.FormatAddr(av - lv)
}
