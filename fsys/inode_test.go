package fsys

import (
	"encoding/binary"
	"testing"

	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawInode(t *testing.T) {
	inode := NewRawInode(mfs.RegularFile)

	assert.Equal(t, mfs.RegularFile, inode.Type)
	assert.EqualValues(t, 0, inode.Size)
	assert.EqualValues(t, 0, inode.NumBlocks)
	for i, ptr := range inode.Ptr {
		assert.Equalf(t, mfs.UnusedBlock, ptr, "slot %d must start unused", i)
	}
}

func TestInodeSerializedForm(t *testing.T) {
	inode := NewRawInode(mfs.RegularFile)
	inode.Size = 8192
	inode.NumBlocks = 2
	inode.Ptr[0] = 7
	inode.Ptr[1] = 41

	buffer, err := serializeInode(&inode)
	require.NoError(t, err)
	require.Len(t, buffer, mfs.InodeSize)

	assert.EqualValues(t, 1, binary.LittleEndian.Uint32(buffer[0:4]), "type at offset 0")
	assert.EqualValues(t, 8192, binary.LittleEndian.Uint32(buffer[4:8]), "size at offset 4")
	assert.EqualValues(t, 2, binary.LittleEndian.Uint32(buffer[8:12]), "num blocks at offset 8")
	assert.EqualValues(t, 7, binary.LittleEndian.Uint32(buffer[12:16]), "first pointer at offset 12")
	assert.EqualValues(t, 41, binary.LittleEndian.Uint32(buffer[16:20]))

	// Unused slots serialize as -1.
	for offset := 20; offset < mfs.InodeSize; offset += 4 {
		assert.EqualValues(t, 0xffffffff, binary.LittleEndian.Uint32(buffer[offset:offset+4]))
	}
}

func TestInodeRoundTrip(t *testing.T) {
	inode := NewRawInode(mfs.Directory)
	inode.Size = 512
	inode.NumBlocks = 1
	inode.Ptr[0] = 0
	inode.Ptr[1] = 1

	buffer, err := serializeInode(&inode)
	require.NoError(t, err)

	decoded, err := deserializeInode(buffer)
	require.NoError(t, err)
	assert.Equal(t, inode, decoded)
}

func TestLiveBlockCountAndFirstFreeSlot(t *testing.T) {
	inode := NewRawInode(mfs.RegularFile)
	assert.Equal(t, 0, inode.LiveBlockCount())
	assert.Equal(t, 0, inode.FirstFreeSlot())

	inode.Ptr[0] = 3
	inode.Ptr[4] = 9
	assert.Equal(t, 2, inode.LiveBlockCount())
	assert.Equal(t, 1, inode.FirstFreeSlot())

	for i := range inode.Ptr {
		inode.Ptr[i] = mfs.BlockIndex(i)
	}
	assert.Equal(t, 10, inode.LiveBlockCount())
	assert.Equal(t, -1, inode.FirstFreeSlot())
}

func TestDeserializeInodeShortBuffer(t *testing.T) {
	_, err := deserializeInode(make([]byte, 10))
	assert.ErrorIs(t, err, mfs.ErrUnexpectedEOF)
}
