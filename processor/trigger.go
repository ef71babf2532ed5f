package processor

import (
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Trigger starts "<binary> process" as a detached child so a CLI call can
// return before the fetch finishes.
type Trigger struct {
	// Binary defaults to the running executable.
	Binary     string
	ConfigPath string
}

func (t Trigger) command(accountID string) (*exec.Cmd, error) {
	bin := t.Binary
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		bin = exe
	}

	args := []string{"process"}
	if accountID != "" {
		args = append(args, "--account-id", accountID)
	}
	if t.ConfigPath != "" {
		args = append(args, "--config", t.ConfigPath)
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)
	return cmd, nil
}

// Start launches the child and reports whether it started. It does not
// wait for the child to finish.
func (t Trigger) Start(accountID string) bool {
	cmd, err := t.command(accountID)
	if err != nil {
		log.Error().Err(err).Msg("resolve executable")
		return false
	}
	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Str("binary", cmd.Path).Msg("start data fetch")
		return false
	}
	log.Info().Int("pid", cmd.Process.Pid).Str("account", accountID).Msg("data fetch started")
	go func() { _ = cmd.Wait() }()
	return true
}
