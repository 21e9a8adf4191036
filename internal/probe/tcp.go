package probe

import (
	"context"
	"net"
	"time"
)

const defaultTCPPort = "80"

// TCP treats established connection as a sign of a living device.
type TCP struct {
	// Port is used when address has no port. Defaults to 80.
	Port string
}

// Probe implements Prober.
func (p TCP) Probe(ctx context.Context, address string, timeout time.Duration) (bool, time.Duration, error) {
	if err := checkAddress(address); err != nil {
		return false, 0, err
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		port := p.Port
		if len(port) == 0 {
			port = defaultTCPPort
		}

		address = net.JoinHostPort(address, port)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	elapsed := time.Since(start)

	if err != nil {
		return false, elapsed, nil
	}

	_ = conn.Close()

	return true, elapsed, nil
}
