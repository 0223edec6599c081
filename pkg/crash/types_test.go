// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package crash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	for input, want := range map[string]uint64{
		"0x104e8c000": 0x104e8c000,
		"104e8c000":   0x104e8c000,
		"0X10":        0x10,
		"0x0":         0,
	} {
		got, err := ParseAddr(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	for _, input := range []string{"", "0x", "wat", "0xzz"} {
		_, err := ParseAddr(input)
		require.Error(t, err, input)
	}
}

func TestFormatAddr(t *testing.T) {
	assert.Equal(t, "0x104e8c000", FormatAddr(0x104e8c000))
	assert.Equal(t, "0x0", FormatAddr(0))
}

func TestFindImage(t *testing.T) {
	rep := new(Report)
	rep.AddImage(BinaryImage{Name: "/private/var/containers/MyApp", Load: "0x1000"})

	// Loose matching: image names may carry path prefixes.
	img := rep.FindImage("MyApp")
	require.NotNil(t, img)
	assert.Equal(t, "0x1000", img.Load)
	assert.Nil(t, rep.FindImage("OtherApp"))
}

func TestAddImageReturnsStored(t *testing.T) {
	rep := new(Report)
	first := rep.AddImage(BinaryImage{Name: "MyApp", BuildID: "abc"})
	second := rep.AddImage(BinaryImage{Name: "MyApp", BuildID: "abc"})
	assert.Same(t, first, second)
	require.Len(t, rep.Images, 1)
}
