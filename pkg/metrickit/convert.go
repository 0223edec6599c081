// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package metrickit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// ErrSchema means the converter input lacks the fixed payload container.
var ErrSchema = errors.New("no payload in diagnostic JSON")

// AppIdentity carries the app fields the converter needs for the legacy
// header; they come from the archive's Info.plist, not from the payload.
type AppIdentity struct {
	Name     string
	BundleID string
	Version  string
	Build    string
}

// Convert rewrites a MetricKit diagnostic of the fixed
// payload/exception/callStack/binaryImages shape into the legacy free-text
// layout, so that callers wanting the legacy shape (or the legacy
// symbolication path) can get it without address resolution. Unlike
// Normalize, no multi-key fallback applies here.
func Convert(data []byte, app AppIdentity) (string, error) {
	root, err := fastjson.ParseBytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if root.Type() != fastjson.TypeObject {
		return "", fmt.Errorf("%w: top-level value is %v", ErrSchema, root.Type())
	}
	payload := root.Get("payload")
	if payload == nil || payload.Type() != fastjson.TypeObject {
		return "", ErrSchema
	}

	get := func(v *fastjson.Value, keys ...string) string {
		if s := str(v, keys...); s != "" {
			return s
		}
		return placeholder
	}

	var lines []string
	lines = append(lines,
		fmt.Sprintf("Incident Identifier: %v", get(root.Get("diagnosticMetadata"), "incidentId")),
		fmt.Sprintf("CrashReporter Key:   %v", get(root.Get("metaData"), "deviceId")),
		fmt.Sprintf("Hardware Model:      %v", get(root.Get("metaData"), "deviceType")),
	)
	if ts := str(root, "timeStamp"); ts != "" {
		lines = append(lines, fmt.Sprintf("Date/Time:           %v", legacyTimestamp(ts)))
	}
	lines = append(lines,
		fmt.Sprintf("Process:             %v [%v]", app.Name, get(payload, "processId")),
		fmt.Sprintf("Version:             %v (%v)", app.Version, app.Build),
		fmt.Sprintf("Bundle Identifier:   %v", app.BundleID),
		fmt.Sprintf("OS Version:          %v", get(root.Get("metaData"), "osVersion")),
		fmt.Sprintf("Exception Type:      %v", get(payload.Get("exception"), "type")),
		fmt.Sprintf("Exception Codes:     %v", get(payload.Get("exception"), "code")),
		fmt.Sprintf("Exception Note:      %v", str(payload.Get("exception"), "signal")),
		fmt.Sprintf("Triggered by Thread: %v", orDefault(str(payload, "threadId"), "0")),
	)

	lines = append(lines, "", "Thread 0 Crashed:")
	for i, frame := range payload.GetArray("callStack") {
		lines = append(lines, fmt.Sprintf("%3d  %v  %v  +%v",
			i,
			get(frame, "binaryName"),
			orDefault(addrStr(frame.Get("address")), "0x0"),
			numVal(frame.Get("offsetIntoBinaryTextSegment"))))
	}

	lines = append(lines, "", "Binary Images:")
	for _, image := range payload.GetArray("binaryImages") {
		lines = append(lines, fmt.Sprintf("%v - %v  %v  %v  <%v>",
			orDefault(addrStr(image.Get("baseAddress")), "0x0"),
			orDefault(addrStr(image.Get("endAddress")), "0x0"),
			get(image, "name"),
			get(image, "version"),
			get(image, "uuid")))
	}

	return strings.Join(lines, "\n"), nil
}

// legacyTimestamp reformats an ISO-8601 timestamp into the layout legacy
// reports use; unparseable input passes through untouched.
func legacyTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05.000 -0700")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
