// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashkit/crashsym/pkg/crash"
)

const sampleReport = `Incident Identifier: 8A27E3C1-0000-0000-0000-000000000000
Process:             MyApp [1234]
Version:             1.2.3 (456)
OS Version:          iPhone OS 17.4 (21E219)
Exception Type:      EXC_BAD_ACCESS (SIGSEGV)
Exception Codes:     KERN_INVALID_ADDRESS at 0x0000000000000000
Triggered by Thread: 0

Thread 0 Crashed:
0   MyApp                         0x0000000104e8d120 0x104e8c000 + 4384
1   MyApp                         0x0000000104e8d200 0x104e8c000 + 4608
2   libdyld.dylib                 0x00000001a3e0c344 start + 4
some noise line that is not a frame

Thread 1:
0   libsystem_kernel.dylib        0x00000001a3df0710 __psynch_cvwait + 8

Binary Images:
0x104e8c000 - 0x104e93fff MyApp arm64 <a1b2c3d4e5f60718293a4b5c6d7e8f90>
garbage line in the middle
0x1a3de9000 - 0x1a3e20fff libsystem_kernel.dylib arm64 <00112233445566778899aabbccddeeff>

EOF
`

func TestParseMetadata(t *testing.T) {
	rep, err := Parse(sampleReport)
	require.NoError(t, err)
	want := crash.Metadata{
		Process:         "MyApp",
		ProcessID:       "1234",
		Version:         "1.2.3",
		Build:           "456",
		OSVersion:       "iPhone OS 17.4",
		OSBuild:         "21E219",
		ExceptionType:   "EXC_BAD_ACCESS (SIGSEGV)",
		ExceptionCodes:  "KERN_INVALID_ADDRESS at 0x0000000000000000",
		TriggeredThread: 0,
	}
	if diff := cmp.Diff(want, rep.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%v", diff)
	}
}

func TestParseImages(t *testing.T) {
	rep, err := Parse(sampleReport)
	require.NoError(t, err)
	// The garbage line inside the section is skipped, not fatal.
	require.Len(t, rep.Images, 2)
	assert.Equal(t, crash.BinaryImage{
		Name:    "MyApp",
		Load:    "0x104e8c000",
		End:     "0x104e93fff",
		Version: "arm64",
		BuildID: "a1b2c3d4e5f60718293a4b5c6d7e8f90",
	}, rep.Images[0])
	assert.Equal(t, "libsystem_kernel.dylib", rep.Images[1].Name)
}

func TestParseThreads(t *testing.T) {
	rep, err := Parse(sampleReport)
	require.NoError(t, err)
	require.Len(t, rep.Threads, 2)

	crashed := rep.Threads[0]
	assert.Equal(t, 0, crashed.Index)
	assert.True(t, crashed.Crashed)
	// Noise lines inside the thread section are ignored.
	require.Len(t, crashed.Frames, 3)
	assert.Equal(t, crash.Frame{
		Binary:  "MyApp",
		Address: "0x0000000104e8d120",
		Symbol:  "0x104e8c000 + 4384",
	}, crashed.Frames[0])
	assert.Equal(t, "libdyld.dylib", crashed.Frames[2].Binary)

	other := rep.Threads[1]
	assert.Equal(t, 1, other.Index)
	assert.False(t, other.Crashed)
	require.Len(t, other.Frames, 1)
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t\n"} {
		_, err := Parse(input)
		require.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestParseMissingAnchors(t *testing.T) {
	// A report without recognizable anchors parses fine with unset fields.
	rep, err := Parse("just some text\nwithout any known anchors\n")
	require.NoError(t, err)
	assert.Equal(t, "", rep.Metadata.Process)
	assert.Equal(t, -1, rep.Metadata.TriggeredThread)
	assert.Empty(t, rep.Images)
	assert.Empty(t, rep.Threads)
}

func TestImageDeduplication(t *testing.T) {
	rep := new(crash.Report)
	rep.AddImage(crash.BinaryImage{Name: "MyApp", BuildID: "abc", Load: "0x1000"})
	rep.AddImage(crash.BinaryImage{Name: "MyApp", BuildID: "abc", Load: "0x2000"})
	rep.AddImage(crash.BinaryImage{Name: "MyApp", BuildID: "def", Load: "0x3000"})
	require.Len(t, rep.Images, 2)
	// First sample wins on duplicate (name, build id).
	assert.Equal(t, "0x1000", rep.Images[0].Load)
}
