package fsys

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/noxer/bytewriter"
	mfs "github.com/philipwilsonchang/myfilesystem"
)

// rawDirEnt is the meaningful 256-byte prefix of a directory-entry
// block: the child's inode number followed by a NUL-terminated name of
// up to 252 bytes including the terminator. Each entry occupies an
// entire data block by itself; the bytes past the prefix are never
// read.
type rawDirEnt struct {
	Child mfs.Inumber
	Name  [mfs.DirEntSize - 4]byte
}

// DirEnt is the decoded form of a directory entry.
type DirEnt struct {
	Child mfs.Inumber
	Name  string
}

func serializeDirEnt(entry *DirEnt) ([]byte, error) {
	name := boundName(entry.Name)
	if len(name) > mfs.MaxNameLength {
		return nil, mfs.ErrNameTooLong.WithMessage(name)
	}

	raw := rawDirEnt{Child: entry.Child}
	copy(raw.Name[:], name)

	buffer := make([]byte, mfs.DirEntSize)
	writer := bytewriter.New(buffer)
	if err := binary.Write(writer, binary.LittleEndian, &raw); err != nil {
		return nil, mfs.ErrIOFailed.WrapError(err)
	}
	return buffer, nil
}

func deserializeDirEnt(buffer []byte) (DirEnt, error) {
	var raw rawDirEnt
	reader := bytes.NewReader(buffer)
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return DirEnt{}, mfs.ErrUnexpectedEOF.WrapError(err)
	}

	name := raw.Name[:]
	if terminator := bytes.IndexByte(name, 0); terminator >= 0 {
		name = name[:terminator]
	}
	return DirEnt{Child: raw.Child, Name: string(name)}, nil
}

// boundName truncates a requested name at its first NUL, matching the
// bytewise comparison of NUL-terminated strings used on disk.
func boundName(name string) string {
	if terminator := strings.IndexByte(name, 0); terminator >= 0 {
		return name[:terminator]
	}
	return name
}

// readDirEnt reads the entry stored at the front of a data block.
func (fs *FileSystem) readDirEnt(block mfs.BlockIndex) (DirEnt, error) {
	buffer := make([]byte, mfs.DirEntSize)
	if err := fs.image.ReadAt(buffer, fs.layout.BlockOffset(block)); err != nil {
		return DirEnt{}, err
	}
	return deserializeDirEnt(buffer)
}

// writeDirEnt writes an entry to the front of a data block. The rest of
// the block is left untouched.
func (fs *FileSystem) writeDirEnt(block mfs.BlockIndex, entry *DirEnt) error {
	buffer, err := serializeDirEnt(entry)
	if err != nil {
		return err
	}
	return fs.image.WriteAt(buffer, fs.layout.BlockOffset(block))
}
