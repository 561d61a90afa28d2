// Package image provides the byte-addressable backing store a file
// system sits on: a fixed-size image addressed by absolute offset, with
// positioned reads and writes and a flush. There is no buffering beyond
// the operating system's page cache.
package image

import (
	"io"
	"os"

	mfs "github.com/philipwilsonchang/myfilesystem"
)

// Image is a fixed-size backing store over an io.ReadWriteSeeker,
// usually an *os.File. All access is by absolute byte offset.
type Image struct {
	stream io.ReadWriteSeeker
	size   int64
}

// Open opens the image file at path read-write, creating it with mode
// 0666 if absent. The second return value reports whether the file was
// created by this call; a caller seeing true must format the image
// before mounting it.
func Open(path string, size int64) (*Image, bool, error) {
	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, false, mfs.ErrIOFailed.WrapError(err)
	}
	return &Image{stream: file, size: size}, created, nil
}

// NewFromStream wraps an existing stream, typically an in-memory buffer
// in tests. The stream must already hold size addressable bytes.
func NewFromStream(stream io.ReadWriteSeeker, size int64) *Image {
	return &Image{stream: stream, size: size}
}

// Size returns the fixed image size in bytes.
func (img *Image) Size() int64 {
	return img.size
}

// ReadAt fills buf from the image starting at offset.
func (img *Image) ReadAt(buf []byte, offset int64) error {
	if offset < 0 || offset+int64(len(buf)) > img.size {
		return mfs.ErrArgumentOutOfRange.WithMessage("read outside image bounds")
	}

	_, err := img.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return mfs.ErrIOFailed.WrapError(err)
	}

	_, err = io.ReadFull(img.stream, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return mfs.ErrUnexpectedEOF.WrapError(err)
	} else if err != nil {
		return mfs.ErrIOFailed.WrapError(err)
	}
	return nil
}

// WriteAt writes buf to the image starting at offset.
func (img *Image) WriteAt(buf []byte, offset int64) error {
	if offset < 0 || offset+int64(len(buf)) > img.size {
		return mfs.ErrArgumentOutOfRange.WithMessage("write outside image bounds")
	}

	_, err := img.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return mfs.ErrIOFailed.WrapError(err)
	}

	_, err = img.stream.Write(buf)
	if err != nil {
		return mfs.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Grow extends a freshly created file to the full image size by writing
// its final byte. The skipped-over region reads back as zeros, which is
// exactly the state a blank image needs. On a stream already at full
// size it still overwrites the final byte with zero.
func (img *Image) Grow() error {
	return img.WriteAt([]byte{0}, img.size-1)
}

// Flush forces written data to stable storage when the underlying
// stream supports it.
func (img *Image) Flush() error {
	if syncer, ok := img.stream.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return mfs.ErrIOFailed.WrapError(err)
		}
	}
	return nil
}

// Close releases the underlying stream when it is closable.
func (img *Image) Close() error {
	if closer, ok := img.stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
