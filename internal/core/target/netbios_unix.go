//go:build !windows

package target

import (
	"context"
	"os/exec"
)

func runNetBIOSQuery(ctx context.Context, ip string) ([]byte, error) {
	return exec.CommandContext(ctx, "nmblookup", "-A", ip).Output()
}
