// Package testing holds helpers for building disposable in-memory
// images in unit tests.
package testing

import (
	"testing"

	"github.com/philipwilsonchang/myfilesystem/disks"
	"github.com/philipwilsonchang/myfilesystem/fsys"
	"github.com/philipwilsonchang/myfilesystem/image"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewBlankImage returns a formatted, memory-backed image of the given
// geometry along with its raw backing bytes. Writes through the image
// are visible in the returned slice, which lets tests assert on exact
// on-disk bytes.
func NewBlankImage(t *testing.T, geometry disks.Geometry) (*image.Image, []byte) {
	backing := make([]byte, geometry.TotalBytes)
	img := image.NewFromStream(
		bytesextra.NewReadWriteSeeker(backing), geometry.TotalBytes)

	require.NoError(t, fsys.Format(img, geometry), "formatting a blank image failed")
	return img, backing
}

// MountBlankFileSystem formats a memory-backed image and mounts it.
func MountBlankFileSystem(t *testing.T, geometry disks.Geometry) *fsys.FileSystem {
	img, _ := NewBlankImage(t, geometry)

	fs, err := fsys.Mount(img, geometry)
	require.NoError(t, err, "mounting a freshly formatted image failed")
	return fs
}
