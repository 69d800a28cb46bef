package netx

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Category is the failure taxonomy consumed by retry and alerting logic.
type Category int

const (
	// CategoryOffline means the device itself has no network path. Never
	// surfaced as an incident; work is deferred until connectivity returns.
	CategoryOffline Category = iota
	// CategoryRemoteUnreachable means the network is up but the remote host
	// cannot be resolved or connected to.
	CategoryRemoteUnreachable
	// CategoryRemoteTimeout means the remote accepted the connection but did
	// not answer in time.
	CategoryRemoteTimeout
	// CategoryConnectionLost means an established connection dropped mid-flight.
	CategoryConnectionLost
	// CategoryRemoteError is the fallback for everything else the remote did.
	CategoryRemoteError
)

func (c Category) String() string {
	switch c {
	case CategoryOffline:
		return "offline"
	case CategoryRemoteUnreachable:
		return "remote unreachable"
	case CategoryRemoteTimeout:
		return "remote timeout"
	case CategoryConnectionLost:
		return "connection lost"
	default:
		return "remote error"
	}
}

// IsServerProblem is true for every category except Offline: it decides
// whether a failure merits surfacing versus silently expected offline
// behavior.
func (c Category) IsServerProblem() bool {
	return c != CategoryOffline
}

// Classify maps a transport error into the failure taxonomy. When the device
// is unreachable the answer is always Offline, whatever the error says:
// an unplugged cable produces the same syscall errors a dead server does.
func (c *Checker) Classify(ctx context.Context, err error) Category {
	if !c.IsReachable(ctx) {
		return CategoryOffline
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryRemoteUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return CategoryRemoteUnreachable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryRemoteTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryRemoteTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return CategoryConnectionLost
	}

	return CategoryRemoteError
}
