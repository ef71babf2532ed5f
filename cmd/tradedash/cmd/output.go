package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

// errReported marks a failure whose JSON result was already printed.
var errReported = errors.New("failure reported")

type response map[string]any

func failure(msg string) response {
	return response{"success": false, "error": msg}
}

// emit prints r as one JSON line and turns success:false into an error so
// the process exits nonzero.
func emit(cmd *cobra.Command, r response) error {
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(r); err != nil {
		return err
	}
	if ok, _ := r["success"].(bool); !ok {
		return errReported
	}
	return nil
}
