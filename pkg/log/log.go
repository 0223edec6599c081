// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels
//   - global verbosity setting that can be used by multiple packages
//   - ability to buffer recent output in memory so that a failed run can dump
//     its resolution trail
package log

import (
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	recent      []string
	recentPos   int
	prependTime = true // for testing
)

// EnableRecentBuffer starts buffering the last maxLines log lines
// (at any verbosity) for later retrieval with RecentOutput.
func EnableRecentBuffer(maxLines int) {
	mu.Lock()
	defer mu.Unlock()
	if maxLines < 1 {
		panic("invalid maxLines")
	}
	recent = make([]string, maxLines)
	recentPos = 0
}

// RecentOutput returns the buffered log lines in write order.
func RecentOutput() string {
	mu.Lock()
	defer mu.Unlock()
	buf := new(strings.Builder)
	for i := range recent {
		pos := (recentPos + i) % len(recent)
		if recent[pos] == "" {
			continue
		}
		buf.WriteString(recent[pos])
		buf.WriteByte('\n')
	}
	return buf.String()
}

func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	doLog := v <= *flagV
	if recent != nil {
		timeStr := ""
		if prependTime {
			timeStr = time.Now().Format("2006/01/02 15:04:05 ")
		}
		recent[recentPos] = fmt.Sprintf(timeStr+msg, args...)
		recentPos++
		if recentPos == len(recent) {
			recentPos = 0
		}
	}
	mu.Unlock()

	if doLog {
		golog.Printf(msg, args...)
	}
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}
