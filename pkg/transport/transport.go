// Package transport implements the pluggable peer transport: a mangos bus
// socket carrying compressed node announcements between coordinators. The
// in-process tables remain authoritative; everything received here is an
// eventually-consistent replica refreshed by the next announcement.
package transport

import (
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/bus"

	// Register all transports (tcp, inproc, ipc)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// Socket is the narrow surface the gossip loop needs from a messaging
// socket. Satisfied by mangos sockets; tests may substitute their own.
type Socket interface {
	Send(data []byte) error
	Recv() ([]byte, error)
	Close() error
	Listen(addr string) error
	Dial(addr string) error
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// busSocket wraps a mangos.Socket to implement Socket
type busSocket struct {
	sock mangos.Socket
}

func (s *busSocket) Send(data []byte) error {
	return s.sock.Send(data)
}

func (s *busSocket) Recv() ([]byte, error) {
	return s.sock.Recv()
}

func (s *busSocket) Close() error {
	return s.sock.Close()
}

func (s *busSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

func (s *busSocket) Dial(addr string) error {
	return s.sock.Dial(addr)
}

func (s *busSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *busSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

// NewBusSocket creates a mangos bus socket. Every connected peer sees every
// message, which matches the announce-to-all shape of gossip.
func NewBusSocket() (Socket, error) {
	sock, err := bus.NewSocket()
	if err != nil {
		return nil, err
	}
	return &busSocket{sock: sock}, nil
}
