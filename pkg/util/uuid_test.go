package util

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameID(t *testing.T) {
	a := FrameID([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	b := FrameID([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	c := FrameID([]byte{0xFF, 0xD8})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestMd5ThenHex(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))
}
