package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

const waitDelay = time.Millisecond * 100

// Exec probes address by running system ping utility once.
// Exit code 0 means the device is reachable.
type Exec struct {
	// Command defaults to "ping".
	Command string
	// Args builds arguments for the command. Defaults to a single echo
	// request with platform specific flags.
	Args func(address string, timeout time.Duration) []string
}

func pingArgs(address string, timeout time.Duration) []string {
	return pingArgsFor(runtime.GOOS, address, timeout)
}

// pingArgsFor only passes a reply timeout where its unit is known. Elsewhere
// the command context enforces the timeout.
func pingArgsFor(goos, address string, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), address}
	case "linux", "android":
		// iputils takes seconds
		secs := int(timeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}

		return []string{"-c", "1", "-W", strconv.Itoa(secs), address}
	default:
		// darwin and BSD read -W as milliseconds or not at all
		return []string{"-c", "1", address}
	}
}

// Probe implements Prober.
func (e Exec) Probe(ctx context.Context, address string, timeout time.Duration) (bool, time.Duration, error) {
	if err := checkAddress(address); err != nil {
		return false, 0, err
	}

	command := e.Command
	if len(command) == 0 {
		command = "ping"
	}

	args := e.Args
	if args == nil {
		args = pingArgs
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args(address, timeout)...)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	return err == nil, elapsed, nil
}
