//go:build windows

package processor

import "os/exec"

func detach(cmd *exec.Cmd) {}
