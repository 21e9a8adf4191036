package probe

import (
	"context"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s is not available: %v", name, err)
	}
}

func noArgs(string, time.Duration) []string { return nil }

func TestPingArgsFor(t *testing.T) {
	tests := []struct {
		goos    string
		timeout time.Duration
		exp     []string
	}{
		{goos: "linux", timeout: time.Second * 2, exp: []string{"-c", "1", "-W", "2", "10.0.0.1"}},
		{goos: "linux", timeout: time.Millisecond * 200, exp: []string{"-c", "1", "-W", "1", "10.0.0.1"}},
		{goos: "android", timeout: time.Second * 3, exp: []string{"-c", "1", "-W", "3", "10.0.0.1"}},
		{goos: "windows", timeout: time.Second * 2, exp: []string{"-n", "1", "-w", "2000", "10.0.0.1"}},
		{goos: "darwin", timeout: time.Second * 2, exp: []string{"-c", "1", "10.0.0.1"}},
		{goos: "freebsd", timeout: time.Second * 2, exp: []string{"-c", "1", "10.0.0.1"}},
		{goos: "openbsd", timeout: time.Second * 2, exp: []string{"-c", "1", "10.0.0.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.exp, pingArgsFor(tt.goos, "10.0.0.1", tt.timeout))
		})
	}
}

func TestExecReachable(t *testing.T) {
	requireBinary(t, "true")

	p := Exec{Command: "true", Args: noArgs}
	ok, elapsed, err := p.Probe(context.Background(), "10.0.0.1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, elapsed, time.Duration(0))
}

func TestExecUnreachable(t *testing.T) {
	requireBinary(t, "false")

	p := Exec{Command: "false", Args: noArgs}
	ok, _, err := p.Probe(context.Background(), "10.0.0.1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecTimeoutIsEnforced(t *testing.T) {
	requireBinary(t, "sleep")

	p := Exec{Command: "sleep", Args: func(string, time.Duration) []string { return []string{"5"} }}

	start := time.Now()
	ok, _, err := p.Probe(context.Background(), "10.0.0.1", time.Millisecond*100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second*2)
}

func TestExecMissingBinaryIsUnreachable(t *testing.T) {
	p := Exec{Command: "definitely-not-a-ping-binary", Args: noArgs}
	ok, _, err := p.Probe(context.Background(), "10.0.0.1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadAddress(t *testing.T) {
	for _, p := range []Prober{Exec{}, TCP{}, &ICMP{}} {
		for _, addr := range []string{"", "  ", "-c", "10.0.0.1 -f"} {
			ok, _, err := p.Probe(context.Background(), addr, time.Second)
			assert.ErrorIs(t, err, ErrBadAddress, "address %q", addr)
			assert.False(t, ok)
		}
	}
}

func TestTCPReachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	ok, _, err := TCP{}.Probe(context.Background(), l.Addr().String(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	ok, _, err = TCP{Port: port}.Probe(context.Background(), host, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTCPRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ok, _, err := TCP{}.Probe(context.Background(), addr, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTCPCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 192.0.2.0/24 is reserved for documentation and never answers.
	ok, _, err := TCP{}.Probe(ctx, "192.0.2.1:80", time.Second*5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFunc(t *testing.T) {
	var called string
	p := Func(func(_ context.Context, address string, _ time.Duration) (bool, time.Duration, error) {
		called = address
		return true, time.Millisecond, nil
	})

	ok, elapsed, err := p.Probe(context.Background(), "router", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Millisecond, elapsed)
	assert.Equal(t, "router", called)
}

func TestNew(t *testing.T) {
	for kind, exp := range map[string]Prober{
		"":       Exec{Command: "ping"},
		KindExec: Exec{Command: "ping"},
		KindTCP:  TCP{},
		KindICMP: &ICMP{},
	} {
		p, err := New(kind, "ping")
		require.NoError(t, err)
		assert.IsType(t, exp, p)
	}

	_, err := New("smoke-signal", "")
	assert.Error(t, err)
}
