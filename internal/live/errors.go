package live

import (
	"errors"
	"fmt"
)

// ErrTransport marks a mid-session read or write failure. It is delivered
// wrapped inside an [Error] event.
var ErrTransport = errors.New("live: transport failure")

// ConnectError is returned by [Client.Connect] when the transport cannot be
// established or the setup message cannot be sent. No session exists after it.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("live: connect: %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ProtocolError describes an inbound message that could not be decoded. The
// session logs it and carries on.
type ProtocolError struct {
	Size int
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("live: malformed message (%d bytes): %v", e.Size, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
