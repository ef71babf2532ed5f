package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradedash/accounts"
	"github.com/rustyeddy/tradedash/processor"
)

var jsonAnnotations = map[string]string{annJSON: "true"}

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List all accounts",
	Args:        cobra.NoArgs,
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		return listAccounts(s)
	}),
}

var getCmd = &cobra.Command{
	Use:         "get <account-id>",
	Short:       "Get an account by id",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		return getAccount(s, args[0])
	}),
}

var addName string

var addCmd = &cobra.Command{
	Use:         "add <account-id>",
	Short:       "Add an account and trigger a data fetch",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		return addAccount(s, args[0], addName, trigger().Start)
	}),
}

var deleteCmd = &cobra.Command{
	Use:         "delete <account-id>",
	Short:       "Delete an account",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		return deleteAccount(s, args[0])
	}),
}

var (
	updateName    string
	updateEnabled string
)

var updateCmd = &cobra.Command{
	Use:         "update <account-id>",
	Short:       "Rename, enable or disable an account",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		var u accounts.AccountUpdate
		if cmd.Flags().Changed("name") {
			u.Name = &updateName
		}
		if cmd.Flags().Changed("enabled") {
			enabled := strings.EqualFold(updateEnabled, "true")
			u.Enabled = &enabled
		}
		return updateAccount(s, args[0], u)
	}),
}

var validateCmd = &cobra.Command{
	Use:         "validate <account-id>",
	Short:       "Check an account id's format and whether it exists",
	Args:        cobra.ExactArgs(1),
	Annotations: jsonAnnotations,
	RunE: withStore(func(cmd *cobra.Command, s *accounts.Store, args []string) response {
		return validateAccount(s, args[0])
	}),
}

var fetchAccountID string

var fetchDataCmd = &cobra.Command{
	Use:         "fetch-data",
	Short:       "Start a background data fetch",
	Args:        cobra.NoArgs,
	Annotations: jsonAnnotations,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emit(cmd, fetchData(fetchAccountID, trigger().Start))
	},
}

func init() {
	rootCmd.AddCommand(listCmd, getCmd, addCmd, deleteCmd, updateCmd, validateCmd, fetchDataCmd)

	addCmd.Flags().StringVar(&addName, "name", "", "account name (default \"Account <id>\")")
	updateCmd.Flags().StringVar(&updateName, "name", "", "new account name")
	updateCmd.Flags().StringVar(&updateEnabled, "enabled", "", "true or false")
	fetchDataCmd.Flags().StringVar(&fetchAccountID, "account-id", "", "fetch only this account (default all enabled)")
}

// withStore opens the account store named by the config and prints the
// handler's response.
func withStore(fn func(*cobra.Command, *accounts.Store, []string) response) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := accounts.NewStore(cfg.Accounts.ConfigPath, cfg.Accounts.FallbackID)
		if err != nil {
			return emit(cmd, failure(err.Error()))
		}
		return emit(cmd, fn(cmd, s, args))
	}
}

func trigger() processor.Trigger {
	return processor.Trigger{ConfigPath: cfgFile}
}

func listAccounts(s *accounts.Store) response {
	list, err := s.List()
	if err != nil {
		return failure(err.Error())
	}
	return response{"success": true, "accounts": list}
}

func getAccount(s *accounts.Store, id string) response {
	acc, err := s.Get(id)
	if errors.Is(err, accounts.ErrNotFound) {
		return failure("Account not found")
	}
	if err != nil {
		return failure(err.Error())
	}
	return response{"success": true, "account": acc}
}

func addAccount(s *accounts.Store, id, name string, start func(string) bool) response {
	acc, err := s.Add(id, name)
	switch {
	case errors.Is(err, accounts.ErrInvalidID):
		return failure("Invalid account ID format")
	case errors.Is(err, accounts.ErrDuplicateAccount):
		return failure("Account already exists")
	case err != nil:
		return failure(err.Error())
	}
	return response{
		"success":              true,
		"account":              acc,
		"data_fetch_triggered": start(""),
	}
}

func deleteAccount(s *accounts.Store, id string) response {
	err := s.Delete(id)
	if errors.Is(err, accounts.ErrNotFound) {
		return failure("Account not found")
	}
	if err != nil {
		return failure(err.Error())
	}
	return response{"success": true}
}

func updateAccount(s *accounts.Store, id string, u accounts.AccountUpdate) response {
	if u.Empty() {
		return failure("No updates provided")
	}
	acc, err := s.Update(id, u)
	if errors.Is(err, accounts.ErrNotFound) {
		return failure("Account not found")
	}
	if err != nil {
		return failure(err.Error())
	}
	return response{"success": true, "account": acc}
}

func validateAccount(s *accounts.Store, id string) response {
	valid := accounts.ValidateID(id)
	_, err := s.Get(id)
	exists := err == nil

	r := response{"success": true, "valid": valid, "exists": exists}
	switch {
	case !valid:
		r["error"] = "Invalid account ID format"
	case exists:
		r["error"] = "Account already exists"
	}
	return r
}

func fetchData(accountID string, start func(string) bool) response {
	if !start(accountID) {
		return failure("Failed to trigger data fetch")
	}
	target := "all enabled accounts"
	if accountID != "" {
		target = "account " + accountID
	}
	return response{"success": true, "message": "Data fetch triggered for " + target}
}
