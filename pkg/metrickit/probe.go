// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package metrickit normalizes MetricKit diagnostic JSON payloads into the
// internal crash model and converts them to the legacy report layout.
// The payload schema varies across producer versions, so field resolution
// follows ordered candidate-key probing rather than fixed struct decoding.
package metrickit

import (
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/crashkit/crashsym/pkg/crash"
)

// firstOf returns the value of the first present key. Used for scalar
// fields, where presence is the whole test.
func firstOf(v *fastjson.Value, keys ...string) *fastjson.Value {
	if v == nil {
		return nil
	}
	for _, key := range keys {
		if child := v.Get(key); child != nil {
			return child
		}
	}
	return nil
}

// firstContainer returns the value of the first key holding a usable
// container: a non-empty array or a non-empty object. A candidate that is
// present but empty (or the wrong type) does not stop the probe; a later
// key can still match.
func firstContainer(v *fastjson.Value, keys ...string) *fastjson.Value {
	if v == nil {
		return nil
	}
	for _, key := range keys {
		child := v.Get(key)
		if child == nil {
			continue
		}
		switch child.Type() {
		case fastjson.TypeArray:
			if len(child.GetArray()) > 0 {
				return child
			}
		case fastjson.TypeObject:
			if obj, err := child.Object(); err == nil && obj.Len() > 0 {
				return child
			}
		}
	}
	return nil
}

// firstEntry unwraps optional array wrapping: arrays yield their first
// element (nil if empty), everything else passes through.
func firstEntry(v *fastjson.Value) *fastjson.Value {
	if v == nil || v.Type() != fastjson.TypeArray {
		return v
	}
	arr := v.GetArray()
	if len(arr) == 0 {
		return nil
	}
	return arr[0]
}

// str probes keys in order and returns the first present value rendered as
// a string. Numbers are formatted, so "processId": 1234 and
// "processId": "1234" read the same.
func str(v *fastjson.Value, keys ...string) string {
	child := firstOf(v, keys...)
	if child == nil {
		return ""
	}
	switch child.Type() {
	case fastjson.TypeString:
		return string(child.GetStringBytes())
	case fastjson.TypeNumber:
		return strconv.FormatInt(child.GetInt64(), 10)
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	}
	return ""
}

// addrStr renders an address field as a hex string. String payload values
// pass through untouched; numeric values are formatted.
func addrStr(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	if v.Type() == fastjson.TypeNumber {
		return crash.FormatAddr(v.GetUint64())
	}
	return ""
}

// numVal parses a field that may be a hex string, a decimal string or a
// JSON number. Returns 0 for anything unusable: a missing offset means
// "frame address equals the image base sample".
func numVal(v *fastjson.Value) uint64 {
	if v == nil {
		return 0
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return v.GetUint64()
	case fastjson.TypeString:
		s := strings.ToLower(string(v.GetStringBytes()))
		if strings.HasPrefix(s, "0x") {
			if n, err := crash.ParseAddr(s); err == nil {
				return n
			}
			return 0
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
