//go:build !windows

package supervise

import (
	"context"
	"os/exec"
)

func killByName(ctx context.Context, name string) error {
	return exec.CommandContext(ctx, "pkill", "-f", name).Run()
}
