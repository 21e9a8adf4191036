package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protocolICMP = 1

var echoPayload = []byte("devicewatch")

// ICMP sends echo request over unprivileged datagram socket. The host must
// allow it (net.ipv4.ping_group_range on linux).
type ICMP struct {
	seq uint32
}

// Probe implements Prober.
func (p *ICMP) Probe(ctx context.Context, address string, timeout time.Duration) (bool, time.Duration, error) {
	if err := checkAddress(address); err != nil {
		return false, 0, err
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", address)
	if err != nil || len(ips) == 0 {
		return false, time.Since(start), nil
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return false, 0, fmt.Errorf("opening icmp socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	seq := int(atomic.AddUint32(&p.seq, 1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: echoPayload,
		},
	}

	data, err := msg.Marshal(nil)
	if err != nil {
		return false, 0, fmt.Errorf("marshalling echo: %w", err)
	}

	start = time.Now()
	if _, err = conn.WriteTo(data, &net.UDPAddr{IP: ips[0]}); err != nil {
		return false, time.Since(start), nil
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return false, time.Since(start), nil
		}

		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		// kernel rewrites echo id for datagram sockets, sequence is enough.
		if echo, ok := reply.Body.(*icmp.Echo); ok && echo.Seq == seq {
			return true, time.Since(start), nil
		}
	}
}
