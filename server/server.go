package server

import (
	"errors"
	"log"
	"net"

	mfs "github.com/philipwilsonchang/myfilesystem"
	"github.com/philipwilsonchang/myfilesystem/fsys"
	"github.com/philipwilsonchang/myfilesystem/udp"
)

// Server owns the listening socket and the dispatcher. One request is
// admitted at a time: between receiving a datagram and sending its
// reply nothing else runs, which is what makes the primitives atomic
// relative to each other without any locking.
type Server struct {
	conn       *net.UDPConn
	dispatcher *Dispatcher
}

// New binds the listening socket. Pass port 0 to let the kernel pick;
// Addr reports the bound address either way.
func New(port int, fs *fsys.FileSystem) (*Server, error) {
	conn, err := udp.Open(port)
	if err != nil {
		return nil, mfs.ErrIOFailed.WrapError(err)
	}
	return &Server{conn: conn, dispatcher: NewDispatcher(fs)}, nil
}

// Addr returns the bound listening address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Serve receives and answers datagrams until the socket is closed. It
// blocks indefinitely; under normal operation it does not return.
func (s *Server) Serve() error {
	log.Printf("listening on %s", s.conn.LocalAddr())

	buf := make([]byte, udp.MaxPacketSize)
	for {
		n, addr, err := udp.Read(s.conn, buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return mfs.ErrIOFailed.WrapError(err)
		}

		reply := s.dispatcher.Dispatch(buf[:n])
		if _, err := udp.Write(s.conn, addr, reply); err != nil {
			// A failed send is the client's loss; the next request
			// must still be served.
			log.Printf("reply to %s failed: %s", addr, err)
		}
	}
}

// Close shuts the listening socket, unblocking Serve.
func (s *Server) Close() error {
	return s.conn.Close()
}
