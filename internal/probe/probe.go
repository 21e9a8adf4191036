// Package probe checks whether a network device is reachable.
//
// Every prober collapses ordinary network failures (timeout, refused
// connection, unreachable host) into reachable=false. Error is returned only
// when the probe could not be performed at all, e.g. the address is malformed.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ferux/devicewatch/internal/model"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = time.Second * 2

// ErrBadAddress is returned for addresses that can't be probed at all.
const ErrBadAddress model.Error = "malformed address"

// Prober performs single reachability check against an address.
type Prober interface {
	Probe(ctx context.Context, address string, timeout time.Duration) (reachable bool, elapsed time.Duration, err error)
}

// Func adapts function to the Prober interface.
type Func func(ctx context.Context, address string, timeout time.Duration) (bool, time.Duration, error)

// Probe implements Prober.
func (fn Func) Probe(ctx context.Context, address string, timeout time.Duration) (bool, time.Duration, error) {
	return fn(ctx, address, timeout)
}

const (
	KindExec = "exec"
	KindTCP  = "tcp"
	KindICMP = "icmp"
)

// New creates prober of specified kind. Empty kind means exec.
func New(kind, command string) (Prober, error) {
	switch kind {
	case "", KindExec:
		return Exec{Command: command}, nil
	case KindTCP:
		return TCP{}, nil
	case KindICMP:
		return &ICMP{}, nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}

func checkAddress(address string) error {
	address = strings.TrimSpace(address)
	if len(address) == 0 || strings.HasPrefix(address, "-") || strings.ContainsAny(address, " \t\n") {
		return ErrBadAddress
	}

	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return context.WithTimeout(ctx, timeout)
}
