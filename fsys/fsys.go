// Package fsys implements the storage engine: a fixed-layout file
// system over a disk image, exposing the six primitives the request
// dispatcher serves. The engine is not safe for concurrent use; the
// server admits one request at a time, which makes every primitive
// atomic relative to the others.
package fsys

import (
	"errors"

	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/disks"
	"github.com/philipwilsonchang/myfilesystem/image"
)

// FileSystem owns a mounted image: its layout and the two write-through
// allocation bitmaps. It is the single process-wide handle to the
// backing store; create it once at startup and keep it for the life of
// the process.
type FileSystem struct {
	image  *image.Image
	layout Layout
	inodes *allocationBitmap
	blocks *allocationBitmap
}

// Mount loads the allocation bitmaps from an initialized image and
// returns the engine handle. The image must already be formatted; Mount
// verifies that the root inode is live and a directory.
func Mount(img *image.Image, geometry disks.Geometry) (*FileSystem, error) {
	layout := LayoutFor(geometry)

	inodes, err := loadBitmap(
		img, layout.InodeBitmapStart, layout.InodeCount, layout.BitmapBytes)
	if err != nil {
		return nil, err
	}
	blocks, err := loadBitmap(
		img, layout.BlockBitmapStart, layout.BlockCount, layout.BitmapBytes)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{image: img, layout: layout, inodes: inodes, blocks: blocks}

	if !fs.inodes.Test(int(mfs.RootInode)) {
		return nil, mfs.ErrFileSystemCorrupted.WithMessage("root inode is not allocated")
	}
	root, err := fs.readInode(mfs.RootInode)
	if err != nil {
		return nil, err
	}
	if root.Type != mfs.Directory {
		return nil, mfs.ErrFileSystemCorrupted.WithMessage("root inode is not a directory")
	}
	return fs, nil
}

// Layout returns the mounted image's region layout.
func (fs *FileSystem) Layout() Layout {
	return fs.layout
}

// BlockSize returns the size of one data block in bytes.
func (fs *FileSystem) BlockSize() int {
	return fs.layout.BlockSize
}

// Flush forces the image to stable storage.
func (fs *FileSystem) Flush() error {
	return fs.image.Flush()
}

// Lookup scans the directory pinum for an entry whose name matches and
// returns the entry's child inode. Names compare as NUL-terminated
// byte strings. With duplicate entries, the lowest slot wins. No side
// effects.
func (fs *FileSystem) Lookup(pinum mfs.Inumber, name string) (mfs.Inumber, error) {
	inum, _, _, err := fs.findEntry(pinum, name)
	return inum, err
}

// findEntry is Lookup plus the location of the match: the parent slot
// index and the directory-entry block it holds. Unlink needs these to
// clear the right slot.
func (fs *FileSystem) findEntry(
	pinum mfs.Inumber, name string,
) (mfs.Inumber, int, mfs.BlockIndex, error) {
	parent, err := fs.directoryInode(pinum)
	if err != nil {
		return -1, -1, mfs.UnusedBlock, err
	}

	want := boundName(name)
	for slot, block := range parent.Ptr {
		if block == mfs.UnusedBlock {
			continue
		}
		entry, err := fs.readDirEnt(block)
		if err != nil {
			return -1, -1, mfs.UnusedBlock, err
		}
		if entry.Name == want {
			return entry.Child, slot, block, nil
		}
	}
	return -1, -1, mfs.UnusedBlock, mfs.ErrNotFound.WithMessage(want)
}

// Stat returns the metadata triple of a live inode.
func (fs *FileSystem) Stat(inum mfs.Inumber) (mfs.Stat, error) {
	inode, err := fs.liveInode(inum)
	if err != nil {
		return mfs.Stat{}, err
	}
	return mfs.Stat{
		Type:      inode.Type,
		Size:      inode.Size,
		NumBlocks: inode.NumBlocks,
	}, nil
}

// ReadBlock returns the full contents of the block held in pointer slot
// `slot` of inode inum. The slot must be backed and the referenced
// block must be marked allocated.
func (fs *FileSystem) ReadBlock(inum mfs.Inumber, slot int) ([]byte, error) {
	inode, err := fs.liveInode(inum)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= mfs.PointersPerInode {
		return nil, mfs.ErrArgumentOutOfRange.WithMessage("block slot out of range")
	}

	block := inode.Ptr[slot]
	if block == mfs.UnusedBlock {
		return nil, mfs.ErrNotFound.WithMessage("block slot is not backed")
	}
	if !fs.blocks.Test(int(block)) {
		return nil, mfs.ErrFileSystemCorrupted.WithMessage(
			"pointer references an unallocated block")
	}

	buffer := make([]byte, fs.layout.BlockSize)
	if err := fs.image.ReadAt(buffer, fs.layout.BlockOffset(block)); err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteBlock allocates a fresh data block, fills it with data, and
// links it into pointer slot `slot` of the regular file inum. Writes
// are allocate-only: a slot that already holds a block is refused, and
// overwrite-in-place does not exist. Data shorter than a block is
// zero-padded.
func (fs *FileSystem) WriteBlock(inum mfs.Inumber, slot int, data []byte) error {
	inode, err := fs.liveInode(inum)
	if err != nil {
		return err
	}
	if inode.Type == mfs.Directory {
		return mfs.ErrIsADirectory.WithMessage("cannot write blocks of a directory")
	}
	if slot < 0 || slot >= mfs.PointersPerInode {
		return mfs.ErrArgumentOutOfRange.WithMessage("block slot out of range")
	}
	if inode.Ptr[slot] != mfs.UnusedBlock {
		return mfs.ErrSlotAlreadyBacked.WithMessage("writes never overwrite in place")
	}
	if len(data) > fs.layout.BlockSize {
		return mfs.ErrInvalidArgument.WithMessage("data exceeds one block")
	}

	block, err := fs.allocateBlock()
	if err != nil {
		return err
	}

	buffer := make([]byte, fs.layout.BlockSize)
	copy(buffer, data)
	if err := fs.image.WriteAt(buffer, fs.layout.BlockOffset(block)); err != nil {
		return err
	}

	inode.Ptr[slot] = block
	inode.NumBlocks++
	inode.Size += int32(fs.layout.BlockSize)
	return fs.writeInode(inum, &inode)
}

// Creat adds a new entry named name to the directory pinum and
// allocates an inode of the given type behind it. A new directory is
// born holding "." and ".." entries in its first two slots.
//
// Name collisions are not checked: a repeated Creat adds a second entry
// and Lookup keeps returning the first. This mirrors the reference
// image behavior; retried datagrams therefore duplicate entries.
func (fs *FileSystem) Creat(pinum mfs.Inumber, fileType mfs.FileType, name string) error {
	if !fileType.IsValid() {
		return mfs.ErrInvalidArgument.WithMessage("unknown object type")
	}
	if len(boundName(name)) > mfs.MaxNameLength {
		return mfs.ErrNameTooLong.WithMessage(boundName(name))
	}

	parent, err := fs.directoryInode(pinum)
	if err != nil {
		return err
	}

	slot := parent.FirstFreeSlot()
	if slot == -1 {
		return mfs.ErrNoSpaceOnDevice.WithMessage("parent directory is full")
	}

	// Refuse up front if the image cannot hold everything the creation
	// needs, so a failed call leaves no partial state behind. A new
	// directory takes three blocks: the parent's entry plus its own
	// "." and "..".
	blocksNeeded := 1
	if fileType == mfs.Directory {
		blocksNeeded = 3
	}
	newInum := fs.inodes.FirstFree()
	if newInum == -1 {
		return mfs.ErrNoSpaceOnDevice.WithMessage("inode table is full")
	}
	if fs.blocks.FreeCount() < blocksNeeded {
		return mfs.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
	}

	if err := fs.inodes.Set(newInum, true); err != nil {
		return err
	}
	child := NewRawInode(fileType)
	if err := fs.writeInode(mfs.Inumber(newInum), &child); err != nil {
		return err
	}

	entryBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	entry := DirEnt{Child: mfs.Inumber(newInum), Name: name}
	if err := fs.writeDirEnt(entryBlock, &entry); err != nil {
		return err
	}
	parent.Ptr[slot] = entryBlock

	if fileType == mfs.Directory {
		if err := fs.populateNewDirectory(mfs.Inumber(newInum), pinum, &child); err != nil {
			return err
		}
	}

	// The parent grows by one entry but its NumBlocks field stays
	// untouched; only the size moves. The field undercounts for every
	// directory on a reference image and this must stay bit-compatible
	// with it.
	parent.Size += int32(mfs.DirEntSize)
	return fs.writeInode(pinum, &parent)
}

// populateNewDirectory gives a just-created directory its "." and ".."
// entries and rewrites its header. The second header write is the
// authoritative one: size 512 for the two entries, NumBlocks pinned to
// 1 to match the reference image's undercount.
func (fs *FileSystem) populateNewDirectory(
	inum, pinum mfs.Inumber, inode *RawInode,
) error {
	dotBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	dot := DirEnt{Child: inum, Name: "."}
	if err := fs.writeDirEnt(dotBlock, &dot); err != nil {
		return err
	}

	dotDotBlock, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	dotDot := DirEnt{Child: pinum, Name: ".."}
	if err := fs.writeDirEnt(dotDotBlock, &dotDot); err != nil {
		return err
	}

	inode.Ptr[0] = dotBlock
	inode.Ptr[1] = dotDotBlock
	inode.Size = 2 * int32(mfs.DirEntSize)
	inode.NumBlocks = 1
	return fs.writeInode(inum, inode)
}

// Unlink removes the entry named name from the directory pinum and
// frees the child's inode. Unlinking an absent name succeeds as a
// no-op. A directory with any entry beyond its own "." and ".." is
// refused.
//
// No data blocks are reclaimed, neither the entry block nor the
// child's: the block bitmap only ever grows. Reference images evolve
// this way and ours must match them.
func (fs *FileSystem) Unlink(pinum mfs.Inumber, name string) error {
	if _, err := fs.directoryInode(pinum); err != nil {
		return err
	}

	// The parent is known good past this point, so a not-found from the
	// entry scan can only mean the name is absent.
	childInum, slot, _, err := fs.findEntry(pinum, name)
	if err != nil {
		if errors.Is(err, mfs.ErrNotFound) {
			return nil
		}
		return err
	}

	if !fs.layout.ValidInumber(childInum) {
		return mfs.ErrFileSystemCorrupted.WithMessage(
			"directory entry references an inode outside the table")
	}
	child, err := fs.readInode(childInum)
	if err != nil {
		return err
	}
	if child.Type == mfs.Directory && child.LiveBlockCount() > 2 {
		return mfs.ErrDirectoryNotEmpty.WithMessage(boundName(name))
	}

	if err := fs.inodes.Set(int(childInum), false); err != nil {
		return err
	}

	parent, err := fs.readInode(pinum)
	if err != nil {
		return err
	}
	parent.Ptr[slot] = mfs.UnusedBlock
	parent.Size -= int32(mfs.DirEntSize)
	return fs.writeInode(pinum, &parent)
}

// -----------------------------------------------------------------------------
// Internal helpers

// liveInode validates that inum is in range and allocated, then reads
// its record.
func (fs *FileSystem) liveInode(inum mfs.Inumber) (RawInode, error) {
	if !fs.layout.ValidInumber(inum) {
		return RawInode{}, mfs.ErrArgumentOutOfRange.WithMessage("inode number out of range")
	}
	if !fs.inodes.Test(int(inum)) {
		return RawInode{}, mfs.ErrNotFound.WithMessage("inode is not allocated")
	}
	return fs.readInode(inum)
}

// directoryInode is liveInode plus a directory type check.
func (fs *FileSystem) directoryInode(inum mfs.Inumber) (RawInode, error) {
	inode, err := fs.liveInode(inum)
	if err != nil {
		return RawInode{}, err
	}
	if inode.Type != mfs.Directory {
		return RawInode{}, mfs.ErrNotADirectory.WithMessage("parent must be a directory")
	}
	return inode, nil
}

// allocateBlock claims the first free data block and marks it in use.
func (fs *FileSystem) allocateBlock() (mfs.BlockIndex, error) {
	block := fs.blocks.FirstFree()
	if block == -1 {
		return mfs.UnusedBlock, mfs.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
	}
	if err := fs.blocks.Set(block, true); err != nil {
		return mfs.UnusedBlock, err
	}
	return mfs.BlockIndex(block), nil
}
