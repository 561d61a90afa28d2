package fsys

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	mfs "github.com/philipwilsonchang/myfilesystem"
)

// Check audits the structural invariants of the mounted image and
// returns every violation found, or nil for a clean image. It never
// modifies anything.
//
// Checked per live inode: the type field is a known value, NumBlocks is
// within [0, 10], every live pointer lands inside the block region and
// references an allocated block, and for regular files NumBlocks equals
// the live pointer count. Directories are exempt from that last
// equality: their NumBlocks is pinned at 1 regardless of entries, so
// the audit asserts the pinned value instead. Leaked blocks (allocated
// but referenced by nothing) are deliberately not reported; unlink
// creates them as a matter of course.
func (fs *FileSystem) Check() error {
	var result *multierror.Error

	if !fs.inodes.Test(int(mfs.RootInode)) {
		result = multierror.Append(result, fmt.Errorf("root inode is not allocated"))
	} else if root, err := fs.readInode(mfs.RootInode); err != nil {
		result = multierror.Append(result, err)
	} else if root.Type != mfs.Directory {
		result = multierror.Append(result, fmt.Errorf("root inode is not a directory"))
	}

	for inum := 0; inum < fs.layout.InodeCount; inum++ {
		if !fs.inodes.Test(inum) {
			continue
		}
		inode, err := fs.readInode(mfs.Inumber(inum))
		if err != nil {
			result = multierror.Append(
				result, fmt.Errorf("inode %d: unreadable: %w", inum, err))
			continue
		}
		result = multierror.Append(result, fs.checkInode(inum, &inode)...)
	}

	return result.ErrorOrNil()
}

func (fs *FileSystem) checkInode(inum int, inode *RawInode) []error {
	var violations []error

	if !inode.Type.IsValid() {
		violations = append(violations, fmt.Errorf(
			"inode %d: unknown type %d", inum, inode.Type))
	}
	if inode.NumBlocks < 0 || inode.NumBlocks > mfs.PointersPerInode {
		violations = append(violations, fmt.Errorf(
			"inode %d: NumBlocks %d outside [0, %d]",
			inum, inode.NumBlocks, mfs.PointersPerInode))
	}

	for slot, block := range inode.Ptr {
		if block == mfs.UnusedBlock {
			continue
		}
		if block < 0 || int(block) >= fs.layout.BlockCount {
			violations = append(violations, fmt.Errorf(
				"inode %d: slot %d references block %d outside [0, %d)",
				inum, slot, block, fs.layout.BlockCount))
			continue
		}
		if !fs.blocks.Test(int(block)) {
			violations = append(violations, fmt.Errorf(
				"inode %d: slot %d references unallocated block %d",
				inum, slot, block))
		}
	}

	live := inode.LiveBlockCount()
	switch inode.Type {
	case mfs.RegularFile:
		if int(inode.NumBlocks) != live {
			violations = append(violations, fmt.Errorf(
				"inode %d: NumBlocks %d does not match %d live pointers",
				inum, inode.NumBlocks, live))
		}
	case mfs.Directory:
		if inode.NumBlocks != 1 {
			violations = append(violations, fmt.Errorf(
				"inode %d: directory NumBlocks is %d, reference images pin it at 1",
				inum, inode.NumBlocks))
		}
	}

	return violations
}
