package fsys

import (
	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/disks"
	"github.com/philipwilsonchang/myfilesystem/image"
)

// Format initializes a freshly created image: grows it to full size,
// allocates the root directory at inode 0, and gives root its "." and
// ".." entries in data blocks 0 and 1. Run exactly once, on an image
// file that did not previously exist; the bitmaps start out correct
// because a grown file reads as zeros.
//
// The finished root carries size 512 but NumBlocks 1, one short of the
// true count. That undercount is how every reference image starts out
// and reformatting it away would break bit-compatibility, so it stays.
func Format(img *image.Image, geometry disks.Geometry) error {
	layout := LayoutFor(geometry)
	fs := &FileSystem{
		image:  img,
		layout: layout,
		inodes: newBlankBitmap(
			img, layout.InodeBitmapStart, layout.InodeCount, layout.BitmapBytes),
		blocks: newBlankBitmap(
			img, layout.BlockBitmapStart, layout.BlockCount, layout.BitmapBytes),
	}

	if err := img.Grow(); err != nil {
		return err
	}

	if err := fs.inodes.Set(int(mfs.RootInode), true); err != nil {
		return err
	}
	root := NewRawInode(mfs.Directory)
	if err := fs.writeInode(mfs.RootInode, &root); err != nil {
		return err
	}

	// "." names the root itself; ".." does too, the root being its own
	// parent.
	dotBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	dot := DirEnt{Child: mfs.RootInode, Name: "."}
	if err := fs.writeDirEnt(dotBlock, &dot); err != nil {
		return err
	}
	root.Ptr[0] = dotBlock
	root.Size += int32(mfs.DirEntSize)
	root.NumBlocks = 1
	if err := fs.writeInode(mfs.RootInode, &root); err != nil {
		return err
	}

	dotDotBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	dotDot := DirEnt{Child: mfs.RootInode, Name: ".."}
	if err := fs.writeDirEnt(dotDotBlock, &dotDot); err != nil {
		return err
	}
	root.Ptr[1] = dotDotBlock
	root.Size += int32(mfs.DirEntSize)
	if err := fs.writeInode(mfs.RootInode, &root); err != nil {
		return err
	}

	return img.Flush()
}
