package disks

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes one image layout preset: how many inodes and data
// blocks it carries, the size of each, and the size of the two
// allocation bitmaps at the front of the image. All byte offsets of the
// on-disk regions follow from these five numbers plus the fixed total.
type Geometry struct {
	Name string `csv:"name"`
	Slug string `csv:"slug"`

	InodeCount    uint `csv:"inode_count"`
	BlockCount    uint `csv:"block_count"`
	BytesPerInode uint `csv:"bytes_per_inode"`
	BytesPerBlock uint `csv:"bytes_per_block"`

	// BitmapBytes is the on-disk size of each of the two bitmaps. It
	// may exceed InodeCount/8; the surplus bits are reserved zero.
	BitmapBytes uint `csv:"bitmap_bytes"`

	// TotalBytes is the exact image file size. For the standard image
	// this is smaller than the sum of the regions' natural sizes: the
	// data region is truncated at the fixed total even though the block
	// bitmap spans BlockCount bits. Kept as a column rather than a
	// computed value so images stay byte-compatible with the reference.
	TotalBytes int64 `csv:"total_bytes"`

	Notes string `csv:"notes"`
}

// DefaultSlug names the standard 16 MiB image every server instance
// uses unless told otherwise.
const DefaultSlug = "mfs-16m"

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string
var diskGeometries = map[string]Geometry{}

// GetPredefinedGeometry returns the preset registered under slug.
func GetPredefinedGeometry(slug string) (Geometry, error) {
	geometry, ok := diskGeometries[slug]
	if ok {
		return geometry, nil
	}

	err := fmt.Errorf("no predefined disk geometry exists with slug %q", slug)
	return Geometry{}, err
}

// Default returns the standard image geometry.
func Default() Geometry {
	geometry, err := GetPredefinedGeometry(DefaultSlug)
	if err != nil {
		panic(err)
	}
	return geometry
}

func init() {
	reader := strings.NewReader(diskGeometriesRawCSV)
	err := gocsv.UnmarshalToCallback(
		reader,
		func(row Geometry) error {
			_, exists := diskGeometries[row.Slug]
			if exists {
				return fmt.Errorf(
					"duplicate definition for disk %q found on row %d",
					row.Slug,
					len(diskGeometries)+1,
				)
			}
			diskGeometries[row.Slug] = row
			return nil
		},
	)
	if err != nil && err != io.EOF {
		panic(err)
	}
}
