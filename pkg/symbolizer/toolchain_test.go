// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLipoInfo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		fails bool
	}{
		{
			name:  "non-fat",
			input: "Non-fat file: /tmp/MyApp is architecture: arm64\n",
			want:  []string{"arm64"},
		},
		{
			name:  "fat",
			input: "Architectures in the fat file: /tmp/MyApp are: x86_64 arm64 arm64e\n",
			want:  []string{"x86_64", "arm64", "arm64e"},
		},
		{
			name:  "garbage",
			input: "lipo: can't figure out the architecture type",
			fails: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := parseLipoInfo(test.input)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestCanonicalBuildID(t *testing.T) {
	// Case and dash variants of the same UUID must compare equal.
	variants := []string{
		"A1B2C3D4-E5F6-0718-293A-4B5C6D7E8F90",
		"a1b2c3d4-e5f6-0718-293a-4b5c6d7e8f90",
		"A1B2C3D4E5F60718293A4B5C6D7E8F90",
		"  a1b2c3d4-e5f6-0718-293a-4b5c6d7e8f90  ",
	}
	want := CanonicalBuildID(variants[0])
	assert.Equal(t, "a1b2c3d4-e5f6-0718-293a-4b5c6d7e8f90", want)
	for _, v := range variants[1:] {
		assert.Equal(t, want, CanonicalBuildID(v), "variant %q", v)
	}
	// Identifiers that are not UUIDs are just lowercased.
	assert.Equal(t, "abc123", CanonicalBuildID("ABC123"))
	assert.NotEqual(t, CanonicalBuildID("abc123"), want)
}

func TestAppleDefaults(t *testing.T) {
	tool := NewApple()
	assert.Equal(t, "atos", tool.Atos)
	assert.Equal(t, defaultToolTimeout, tool.timeout())
	tool.Timeout = 0
	assert.Equal(t, defaultToolTimeout, tool.timeout())
}
