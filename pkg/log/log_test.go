// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"strings"
	"testing"
)

func TestRecentBuffer(t *testing.T) {
	prependTime = false
	EnableRecentBuffer(3)
	Logf(3, "one %d", 1)
	Logf(3, "two")
	got := RecentOutput()
	if got != "one 1\ntwo\n" {
		t.Fatalf("unexpected output: %q", got)
	}
	// Overflow evicts the oldest line.
	Logf(3, "three")
	Logf(3, "four")
	got = RecentOutput()
	if strings.Contains(got, "one") || !strings.Contains(got, "four") {
		t.Fatalf("unexpected output after overflow: %q", got)
	}
}
