// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains helpers for implementation of command line tools.
package tool

import (
	"fmt"
	"os"

	"github.com/crashkit/crashsym/pkg/log"
)

func Failf(msg string, args ...interface{}) {
	fmt.Fprint(os.Stderr, FailureReport(fmt.Sprintf(msg, args...)))
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}

// FailureReport prefixes the failure message with the buffered recent log
// output (when enabled), so a failed run shows its resolution trail.
func FailureReport(msg string) string {
	return log.RecentOutput() + msg + "\n"
}
