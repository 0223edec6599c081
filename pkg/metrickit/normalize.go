// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package metrickit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/crashkit/crashsym/pkg/crash"
	"github.com/crashkit/crashsym/pkg/log"
)

var (
	ErrInvalidSchema         = errors.New("diagnostic payload has invalid schema")
	ErrDiagnosticDataMissing = errors.New("no diagnostic data container in payload")
	ErrCallStackMissing      = errors.New("no call stack container in payload")
	ErrNoFrames              = errors.New("diagnostic payload carries no stack frames")
)

// Candidate key lists, probed in order. Producer versions disagree on
// container names, so every lookup takes the first key holding a usable
// container; present-but-empty candidates do not stop the probe.
var (
	diagnosticKeys = []string{"crashDiagnostics", "diagnostics", "payload", "diagnosticPayload"}
	callStackKeys  = []string{"callStackTree", "callStacks", "stackFrames", "frames"}
	metadataKeys   = []string{"diagnosticMetaData", "metaData", "metadata"}
	childKeys      = []string{"subFrames", "frames", "children"}
	rootFrameKeys  = []string{"callStackRootFrames", "frames", "subFrames"}
)

// Normalize converts a MetricKit diagnostic payload of unknown exact shape
// into the internal crash model. Binary images are synthesized from frames:
// the first frame seen for a (name, build id) pair provides the image's
// base address as frame.address - frame.offsetIntoBinaryTextSegment.
func Normalize(data []byte) (*crash.Report, error) {
	root, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	top := root
	if root.Type() == fastjson.TypeArray {
		if top = firstEntry(root); top == nil {
			return nil, fmt.Errorf("%w: empty top-level array", ErrInvalidSchema)
		}
	}
	if top.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: top-level value is %v", ErrInvalidSchema, top.Type())
	}

	diag := firstEntry(firstContainer(top, diagnosticKeys...))
	if diag == nil || diag.Type() != fastjson.TypeObject {
		return nil, ErrDiagnosticDataMissing
	}

	rep := &crash.Report{Metadata: crash.Metadata{TriggeredThread: -1}}
	fillMetadata(rep, top, diag)

	stacks, err := callStacks(diag)
	if err != nil {
		return nil, err
	}
	n := &normalizer{rep: rep}
	for i, stack := range stacks {
		thread := crash.Thread{Index: i, Crashed: crashedFlag(stack, i)}
		if roots := firstContainer(stack, rootFrameKeys...); roots != nil {
			for _, node := range roots.GetArray() {
				n.walk(node, 0, &thread)
			}
		}
		rep.Threads = append(rep.Threads, thread)
	}

	total := 0
	for _, thread := range rep.Threads {
		total += len(thread.Frames)
	}
	if total == 0 {
		return nil, ErrNoFrames
	}
	return rep, nil
}

// callStacks resolves the call-stack container to the list of per-thread
// stack records. The container may be the list itself, or a tree object
// wrapping the list under a further candidate key, or a single record.
func callStacks(diag *fastjson.Value) ([]*fastjson.Value, error) {
	container := firstContainer(diag, callStackKeys...)
	if container == nil {
		return nil, ErrCallStackMissing
	}
	var stacks []*fastjson.Value
	switch container.Type() {
	case fastjson.TypeArray:
		stacks = container.GetArray()
	case fastjson.TypeObject:
		if inner := firstContainer(container, "callStacks", "stackFrames", "frames"); inner != nil &&
			inner.Type() == fastjson.TypeArray {
			stacks = inner.GetArray()
		} else {
			stacks = []*fastjson.Value{container}
		}
	}
	if len(stacks) == 0 {
		return nil, ErrCallStackMissing
	}
	return stacks, nil
}

// crashedFlag: a stack is crashed if its own record says so, or, for schemas
// where call stacks are a bare list with no flag at all, if it comes first.
func crashedFlag(stack *fastjson.Value, index int) bool {
	if flag := firstOf(stack, "threadAttributed", "crashed", "isCrashed"); flag != nil {
		return flag.GetBool()
	}
	return index == 0
}

type normalizer struct {
	rep *crash.Report
}

// walk visits a call-tree node and its children in pre-order; depth is kept
// for rendering indentation only.
func (n *normalizer) walk(node *fastjson.Value, depth int, thread *crash.Thread) {
	if node == nil || node.Type() != fastjson.TypeObject {
		return
	}
	frame := crash.Frame{
		Binary:  str(node, "binaryName", "name"),
		Address: addrStr(node.Get("address")),
		Offset:  numVal(node.Get("offsetIntoBinaryTextSegment")),
		Symbol:  str(node, "symbol", "symbolName"),
		Depth:   depth,
	}
	thread.Frames = append(thread.Frames, frame)
	n.recordImage(node, frame)
	if children := firstContainer(node, childKeys...); children != nil {
		for _, child := range children.GetArray() {
			n.walk(child, depth+1, thread)
		}
	}
}

// recordImage synthesizes a binary image the first time a (name, build id)
// pair is seen. The base address is recovered from this single sample frame;
// if a later frame implies a different base the first sample wins, but the
// inconsistency is logged since it usually means multiple load instances.
func (n *normalizer) recordImage(node *fastjson.Value, frame crash.Frame) {
	if frame.Binary == "" || frame.Address == "" {
		return
	}
	buildID := strings.ToLower(str(node, "binaryUUID", "uuid"))
	addr, err := crash.ParseAddr(frame.Address)
	if err != nil {
		return
	}
	base := crash.FormatAddr(addr - frame.Offset)
	for i := range n.rep.Images {
		img := &n.rep.Images[i]
		if img.Name == frame.Binary && img.BuildID == buildID {
			if img.Load != base {
				log.Logf(1, "image %v: frame %v implies base %v, keeping first sample %v",
					frame.Binary, frame.Address, base, img.Load)
			}
			return
		}
	}
	n.rep.AddImage(crash.BinaryImage{
		Name:    frame.Binary,
		Load:    base,
		BuildID: buildID,
	})
}

// fillMetadata merges all present metadata containers (earlier probes win
// per key) and fills the report metadata with per-field key fallbacks.
func fillMetadata(rep *crash.Report, top, diag *fastjson.Value) {
	merged := make(map[string]*fastjson.Value)
	for _, holder := range []*fastjson.Value{diag, top} {
		for _, key := range metadataKeys {
			container := holder.Get(key)
			if container == nil || container.Type() != fastjson.TypeObject {
				continue
			}
			obj, _ := container.Object()
			obj.Visit(func(k []byte, v *fastjson.Value) {
				if _, ok := merged[string(k)]; !ok {
					merged[string(k)] = v
				}
			})
		}
	}
	get := func(keys ...string) string {
		for _, key := range keys {
			if v, ok := merged[key]; ok {
				if s := valueString(v); s != "" {
					return s
				}
			}
		}
		return ""
	}
	meta := &rep.Metadata
	meta.Process = get("processName", "process")
	meta.ProcessID = get("pid", "processId")
	meta.BundleID = get("bundleIdentifier", "bundleId")
	meta.Version = get("appVersion")
	meta.Build = get("appBuildVersion", "buildVersion")
	meta.OSVersion = get("osVersion")
	meta.ExceptionType = get("exceptionType")
	meta.ExceptionCodes = get("exceptionCode", "code")
	meta.Signal = get("signal")
	meta.Device = get("deviceType", "model")
	meta.Timestamp = get("timeStamp", "timestamp")
	if meta.Timestamp == "" {
		meta.Timestamp = str(top, "timeStamp", "timestamp")
	}
}

func valueString(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return strconv.FormatInt(v.GetInt64(), 10)
	}
	return ""
}
