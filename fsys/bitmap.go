package fsys

import (
	bitmap "github.com/boljen/go-bitmap"
	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/image"
)

// allocationBitmap tracks which inodes or blocks are in use. The full
// region is cached in memory and every change is written through to the
// image immediately, so the cache and the on-disk bytes never diverge
// between operations. Bits are LSB-first within each byte; 0 is free.
type allocationBitmap struct {
	image *image.Image
	base  int64
	bits  bitmap.Bitmap
	count int
}

// newBlankBitmap returns an all-free bitmap backed by a region that is
// known to read as zeros, i.e. a freshly grown image. Nothing is
// written until the first Set.
func newBlankBitmap(img *image.Image, base int64, count, regionBytes int) *allocationBitmap {
	return &allocationBitmap{
		image: img,
		base:  base,
		bits:  bitmap.Bitmap(make([]byte, regionBytes)),
		count: count,
	}
}

// loadBitmap reads an existing bitmap region from the image.
func loadBitmap(img *image.Image, base int64, count, regionBytes int) (*allocationBitmap, error) {
	raw := make([]byte, regionBytes)
	if err := img.ReadAt(raw, base); err != nil {
		return nil, err
	}
	return &allocationBitmap{
		image: img,
		base:  base,
		bits:  bitmap.Bitmap(raw),
		count: count,
	}, nil
}

// Test reports whether bit index is marked in use.
func (m *allocationBitmap) Test(index int) bool {
	if index < 0 || index >= m.count {
		return false
	}
	return m.bits.Get(index)
}

// Set marks bit index as in use or free, writing the affected byte
// through to the image.
func (m *allocationBitmap) Set(index int, inUse bool) error {
	if index < 0 || index >= m.count {
		return mfs.ErrArgumentOutOfRange.WithMessage("bitmap index out of range")
	}

	m.bits.Set(index, inUse)

	byteIndex := int64(index >> 3)
	raw := m.bits.Data(false)
	return m.image.WriteAt(raw[byteIndex:byteIndex+1], m.base+byteIndex)
}

// FirstFree returns the lowest index whose bit is 0, or -1 when the
// bitmap is full.
func (m *allocationBitmap) FirstFree() int {
	for i := 0; i < m.count; i++ {
		if !m.bits.Get(i) {
			return i
		}
	}
	return -1
}

// FreeCount returns the number of unallocated indices.
func (m *allocationBitmap) FreeCount() int {
	free := 0
	for i := 0; i < m.count; i++ {
		if !m.bits.Get(i) {
			free++
		}
	}
	return free
}
