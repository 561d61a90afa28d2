// Package server turns request datagrams into storage-engine calls and
// formats the reply datagrams. The protocol is text-framed: a verb and
// its integer arguments in decimal ASCII, whitespace-separated, with
// the final argument running to the end of the datagram verbatim.
package server

import (
	"strconv"

	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/fsys"
)

// failureReply answers every protocol, semantic, and storage error.
// The wire keeps no distinction between them.
var failureReply = []byte("-1")

// Dispatcher parses one request payload, runs the matching primitive,
// and renders the reply.
type Dispatcher struct {
	fs *fsys.FileSystem
}

func NewDispatcher(fs *fsys.FileSystem) *Dispatcher {
	return &Dispatcher{fs: fs}
}

// Dispatch handles a single request datagram and returns the reply to
// send back. On every successful operation the image is flushed before
// the reply is produced, so an acknowledged mutation is on disk by the
// time the client sees it.
func (d *Dispatcher) Dispatch(payload []byte) []byte {
	verb, rest := nextField(payload)

	switch string(verb) {
	case "lookup":
		return d.lookup(rest)
	case "stat":
		return d.stat(rest)
	case "write":
		return d.write(rest)
	case "read":
		return d.read(rest)
	case "creat":
		return d.creat(rest)
	case "unlink":
		return d.unlink(rest)
	}
	return failureReply
}

// lookup pinum name -> "<inum>", -1 when absent or refused.
func (d *Dispatcher) lookup(args []byte) []byte {
	pinum, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	name, ok := finalField(args)
	if !ok {
		return failureReply
	}

	inum, err := d.fs.Lookup(mfs.Inumber(pinum), string(name))
	if err != nil {
		return failureReply
	}
	if err := d.fs.Flush(); err != nil {
		return failureReply
	}
	return []byte(strconv.Itoa(int(inum)))
}

// stat inum -> "0 <type> <size> <blocks>", -1 on failure.
func (d *Dispatcher) stat(args []byte) []byte {
	inum, args, ok := intField(args)
	if !ok || !exhausted(args) {
		return failureReply
	}

	stat, err := d.fs.Stat(mfs.Inumber(inum))
	if err != nil {
		return failureReply
	}
	if err := d.fs.Flush(); err != nil {
		return failureReply
	}

	reply := []byte("0 ")
	reply = strconv.AppendInt(reply, int64(stat.Type), 10)
	reply = append(reply, ' ')
	reply = strconv.AppendInt(reply, int64(stat.Size), 10)
	reply = append(reply, ' ')
	reply = strconv.AppendInt(reply, int64(stat.NumBlocks), 10)
	return reply
}

// write inum block data -> "<code>". The data argument is the raw
// remainder of the datagram, byte for byte.
func (d *Dispatcher) write(args []byte) []byte {
	inum, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	slot, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	data, ok := finalField(args)
	if !ok {
		return failureReply
	}

	if err := d.fs.WriteBlock(mfs.Inumber(inum), int(slot), data); err != nil {
		return failureReply
	}
	return d.successCode()
}

// read inum block -> "0 " followed by the raw block bytes, -1 on
// failure.
func (d *Dispatcher) read(args []byte) []byte {
	inum, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	slot, args, ok := intField(args)
	if !ok || !exhausted(args) {
		return failureReply
	}

	block, err := d.fs.ReadBlock(mfs.Inumber(inum), int(slot))
	if err != nil {
		return failureReply
	}
	if err := d.fs.Flush(); err != nil {
		return failureReply
	}
	return append([]byte("0 "), block...)
}

// creat pinum type name -> "<code>".
func (d *Dispatcher) creat(args []byte) []byte {
	pinum, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	fileType, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	name, ok := finalField(args)
	if !ok {
		return failureReply
	}

	err := d.fs.Creat(mfs.Inumber(pinum), mfs.FileType(fileType), string(name))
	if err != nil {
		return failureReply
	}
	return d.successCode()
}

// unlink pinum name -> "<code>". Unlinking an absent name is a
// successful no-op.
func (d *Dispatcher) unlink(args []byte) []byte {
	pinum, args, ok := intField(args)
	if !ok {
		return failureReply
	}
	name, ok := finalField(args)
	if !ok {
		return failureReply
	}

	if err := d.fs.Unlink(mfs.Inumber(pinum), string(name)); err != nil {
		return failureReply
	}
	return d.successCode()
}

// successCode flushes the image and acknowledges a mutating operation.
// A failed flush is a storage error and reported like any other
// failure; the mutation may or may not have reached the disk.
func (d *Dispatcher) successCode() []byte {
	if err := d.fs.Flush(); err != nil {
		return failureReply
	}
	return []byte("0")
}

// -----------------------------------------------------------------------------
// Field parsing

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func skipSpaceRun(buf []byte) []byte {
	i := 0
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	return buf[i:]
}

// nextField returns the next whitespace-delimited token and the
// remainder following it. The remainder still carries its leading
// separator run so finalField can distinguish "separator present, value
// empty" from "no separator at all".
func nextField(buf []byte) ([]byte, []byte) {
	buf = skipSpaceRun(buf)
	i := 0
	for i < len(buf) && !isSpace(buf[i]) {
		i++
	}
	return buf[:i], buf[i:]
}

// intField parses the next token as a decimal 32-bit integer.
func intField(buf []byte) (int32, []byte, bool) {
	token, rest := nextField(buf)
	if len(token) == 0 {
		return 0, rest, false
	}
	value, err := strconv.ParseInt(string(token), 10, 32)
	if err != nil {
		return 0, rest, false
	}
	return int32(value), rest, true
}

// finalField consumes the separator run after the previous token and
// returns everything left in the datagram, verbatim. A missing or empty
// final argument makes the command malformed.
func finalField(buf []byte) ([]byte, bool) {
	if len(buf) == 0 || !isSpace(buf[0]) {
		return nil, false
	}
	value := skipSpaceRun(buf)
	if len(value) == 0 {
		return nil, false
	}
	return value, true
}

// exhausted reports whether buf holds nothing but trailing whitespace;
// commands with a fixed argument count reject extra fields.
func exhausted(buf []byte) bool {
	return len(skipSpaceRun(buf)) == 0
}
