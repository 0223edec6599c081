// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package metrickit

import (
	"fmt"
	"strings"

	"github.com/crashkit/crashsym/pkg/crash"
	"github.com/crashkit/crashsym/pkg/symbolizer"
)

const placeholder = "Unknown"

// RenderNormalized produces the text report for a normalized MetricKit
// diagnostic: a header followed by one section per thread. Frames whose
// binary has no matching image render with the unknown-symbol marker.
// Call-tree nesting is shown as indentation.
func RenderNormalized(rep *crash.Report) string {
	buf := new(strings.Builder)
	meta := rep.Metadata
	writeField(buf, "Hardware Model", meta.Device)
	writeField(buf, "Date/Time", meta.Timestamp)
	writeField(buf, "Process", meta.Process)
	writeField(buf, "Exception Type", meta.ExceptionType)
	if meta.ExceptionCodes != "" {
		writeField(buf, "Exception Codes", meta.ExceptionCodes)
	}
	if meta.Signal != "" {
		writeField(buf, "Exception Note", meta.Signal)
	}

	for _, thread := range rep.Threads {
		buf.WriteByte('\n')
		if thread.Crashed {
			fmt.Fprintf(buf, "Thread %v Crashed:\n", thread.Index)
		} else {
			fmt.Fprintf(buf, "Thread %v:\n", thread.Index)
		}
		for i, frame := range thread.Frames {
			binary := frame.Binary
			if binary == "" {
				binary = placeholder
			}
			symbol := frame.Symbol
			if strings.TrimSpace(symbol) == "" || !hasImage(rep, frame.Binary) {
				symbol = symbolizer.UnknownSymbol
			}
			indent := strings.Repeat("  ", frame.Depth)
			fmt.Fprintf(buf, "%-3d %v%v %v %v\n", i, indent, binary, frame.Address, symbol)
		}
	}
	return buf.String()
}

func hasImage(rep *crash.Report, binary string) bool {
	if binary == "" {
		return false
	}
	for _, img := range rep.Images {
		if img.Name == binary {
			return true
		}
	}
	return false
}

func writeField(buf *strings.Builder, label, value string) {
	if value == "" {
		value = placeholder
	}
	fmt.Fprintf(buf, "%-20v %v\n", label+":", value)
}
