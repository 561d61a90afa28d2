package fsys

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirEntSerializedForm(t *testing.T) {
	entry := DirEnt{Child: 5, Name: "hello"}

	buffer, err := serializeDirEnt(&entry)
	require.NoError(t, err)
	require.Len(t, buffer, mfs.DirEntSize)

	assert.EqualValues(t, 5, binary.LittleEndian.Uint32(buffer[0:4]))
	assert.Equal(t, []byte("hello"), buffer[4:9])
	assert.EqualValues(t, 0, buffer[9], "the name must be NUL-terminated")
}

func TestDirEntRoundTrip(t *testing.T) {
	entry := DirEnt{Child: 4095, Name: ".."}

	buffer, err := serializeDirEnt(&entry)
	require.NoError(t, err)

	decoded, err := deserializeDirEnt(buffer)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestDirEntLongestName(t *testing.T) {
	name := strings.Repeat("n", mfs.MaxNameLength)
	entry := DirEnt{Child: 1, Name: name}

	buffer, err := serializeDirEnt(&entry)
	require.NoError(t, err)
	assert.EqualValues(t, 0, buffer[mfs.DirEntSize-1],
		"a maximum-length name still ends in a terminator")

	decoded, err := deserializeDirEnt(buffer)
	require.NoError(t, err)
	assert.Equal(t, name, decoded.Name)
}

func TestDirEntNameTooLong(t *testing.T) {
	entry := DirEnt{Child: 1, Name: strings.Repeat("n", mfs.MaxNameLength+1)}
	_, err := serializeDirEnt(&entry)
	assert.ErrorIs(t, err, mfs.ErrNameTooLong)
}

func TestDirEntNameBoundAtNul(t *testing.T) {
	entry := DirEnt{Child: 1, Name: "short\x00garbage that never reaches the disk"}

	buffer, err := serializeDirEnt(&entry)
	require.NoError(t, err)

	decoded, err := deserializeDirEnt(buffer)
	require.NoError(t, err)
	assert.Equal(t, "short", decoded.Name)
	assert.NotContains(t, string(buffer), "garbage")
}

func TestDeserializeDirEntWithoutTerminator(t *testing.T) {
	// An entry whose name field is fully populated has no terminator;
	// the name is bounded at 252 bytes.
	buffer := bytes.Repeat([]byte{'x'}, mfs.DirEntSize)
	binary.LittleEndian.PutUint32(buffer[0:4], 9)

	decoded, err := deserializeDirEnt(buffer)
	require.NoError(t, err)
	assert.EqualValues(t, 9, decoded.Child)
	assert.Len(t, decoded.Name, mfs.DirEntSize-4)
}

func TestBoundName(t *testing.T) {
	assert.Equal(t, "abc", boundName("abc"))
	assert.Equal(t, "abc", boundName("abc\x00def"))
	assert.Equal(t, "", boundName("\x00abc"))
}
