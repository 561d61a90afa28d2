package fsys

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
	mfs "github.com/philipwilsonchang/myfilesystem"
)

// RawInode is the 52-byte on-disk inode record: three little-endian
// signed 32-bit fields followed by ten direct block pointers. The
// record is deliberately not padded out to a word boundary.
type RawInode struct {
	Type      mfs.FileType
	Size      int32
	NumBlocks int32
	Ptr       [mfs.PointersPerInode]mfs.BlockIndex
}

// NewRawInode returns a fresh record of the given type with no size, no
// counted blocks, and every pointer slot unused.
func NewRawInode(fileType mfs.FileType) RawInode {
	inode := RawInode{Type: fileType}
	for i := range inode.Ptr {
		inode.Ptr[i] = mfs.UnusedBlock
	}
	return inode
}

// LiveBlockCount returns the number of pointer slots currently holding
// a block. Note this is the true count; for directories the NumBlocks
// field stays pinned at 1 and so undercounts it (see Format and Creat).
func (inode *RawInode) LiveBlockCount() int {
	count := 0
	for _, ptr := range inode.Ptr {
		if ptr != mfs.UnusedBlock {
			count++
		}
	}
	return count
}

// FirstFreeSlot returns the lowest unused pointer slot, or -1 when all
// ten are occupied.
func (inode *RawInode) FirstFreeSlot() int {
	for i, ptr := range inode.Ptr {
		if ptr == mfs.UnusedBlock {
			return i
		}
	}
	return -1
}

func serializeInode(inode *RawInode) ([]byte, error) {
	buffer := make([]byte, mfs.InodeSize)
	writer := bytewriter.New(buffer)
	if err := binary.Write(writer, binary.LittleEndian, inode); err != nil {
		return nil, mfs.ErrIOFailed.WrapError(err)
	}
	return buffer, nil
}

func deserializeInode(buffer []byte) (RawInode, error) {
	var inode RawInode
	reader := bytes.NewReader(buffer)
	if err := binary.Read(reader, binary.LittleEndian, &inode); err != nil {
		return RawInode{}, mfs.ErrUnexpectedEOF.WrapError(err)
	}
	return inode, nil
}

// readInode reads the record for inum. The caller is responsible for
// checking the allocation bitmap first; records of free inodes are
// whatever was last written there.
func (fs *FileSystem) readInode(inum mfs.Inumber) (RawInode, error) {
	buffer := make([]byte, fs.layout.InodeSize)
	if err := fs.image.ReadAt(buffer, fs.layout.InodeOffset(inum)); err != nil {
		return RawInode{}, err
	}
	return deserializeInode(buffer)
}

func (fs *FileSystem) writeInode(inum mfs.Inumber, inode *RawInode) error {
	buffer, err := serializeInode(inode)
	if err != nil {
		return err
	}
	return fs.image.WriteAt(buffer, fs.layout.InodeOffset(inum))
}
