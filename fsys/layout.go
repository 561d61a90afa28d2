package fsys

import (
	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/disks"
)

// Layout holds the absolute byte offsets of the four on-disk regions:
// the two allocation bitmaps, the inode table, and the data blocks. All
// higher layers address the image through these offsets; nothing on
// disk is self-describing.
type Layout struct {
	InodeBitmapStart int64
	BlockBitmapStart int64
	InodeTableStart  int64
	DataStart        int64

	InodeCount  int
	BlockCount  int
	InodeSize   int
	BlockSize   int
	BitmapBytes int
	TotalBytes  int64
}

// LayoutFor computes the region offsets for a geometry. The regions are
// packed back to back: inode bitmap, block bitmap, inode table, data.
func LayoutFor(geometry disks.Geometry) Layout {
	inodeBitmapStart := int64(0)
	blockBitmapStart := inodeBitmapStart + int64(geometry.BitmapBytes)
	inodeTableStart := blockBitmapStart + int64(geometry.BitmapBytes)
	dataStart := inodeTableStart +
		int64(geometry.InodeCount)*int64(geometry.BytesPerInode)

	return Layout{
		InodeBitmapStart: inodeBitmapStart,
		BlockBitmapStart: blockBitmapStart,
		InodeTableStart:  inodeTableStart,
		DataStart:        dataStart,
		InodeCount:       int(geometry.InodeCount),
		BlockCount:       int(geometry.BlockCount),
		InodeSize:        int(geometry.BytesPerInode),
		BlockSize:        int(geometry.BytesPerBlock),
		BitmapBytes:      int(geometry.BitmapBytes),
		TotalBytes:       geometry.TotalBytes,
	}
}

// InodeOffset returns the absolute offset of an inode record.
func (layout *Layout) InodeOffset(inum mfs.Inumber) int64 {
	return layout.InodeTableStart + int64(inum)*int64(layout.InodeSize)
}

// BlockOffset returns the absolute offset of a data block.
func (layout *Layout) BlockOffset(block mfs.BlockIndex) int64 {
	return layout.DataStart + int64(block)*int64(layout.BlockSize)
}

// ValidInumber reports whether inum addresses a slot in the inode
// table, allocated or not.
func (layout *Layout) ValidInumber(inum mfs.Inumber) bool {
	return inum >= 0 && int(inum) < layout.InodeCount
}
