package useradmin

import (
	"fmt"
	"strconv"

	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/ui"
	"github.com/safedep/blpfs/label"
	"github.com/safedep/blpfs/principal"
	"github.com/spf13/cobra"
)

// The admin CLI mutates the credential store on behalf of the current
// principal. The gates live in the config package; this layer only
// resolves the operator identity and renders results.

func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer the principal credential store",
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newAddCommand())
	cmd.AddCommand(newRemoveCommand())
	cmd.AddCommand(newSetLevelCommand())
	cmd.AddCommand(newSetTrustCommand())

	return cmd
}

func operatorName() (string, string, error) {
	usersFile, err := config.UsersFilePath()
	if err != nil {
		return "", "", err
	}

	resolver, err := principal.NewStoreResolver()
	if err != nil {
		return "", "", err
	}

	return usersFile, resolver.CurrentPrincipal().Name, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List principals and their credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			usersFile, err := config.UsersFilePath()
			if err != nil {
				ui.ErrorExit(err)
			}

			creds, err := config.LoadStore(usersFile)
			if err != nil {
				ui.ErrorExit(err)
			}

			ui.PrintPrincipalTable(creds)
			return nil
		},
	}
}

func newAddCommand() *cobra.Command {
	var trusted bool

	cmd := &cobra.Command{
		Use:   "add [name] [level]",
		Short: "Add a principal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := label.Parse(args[1])
			if err != nil {
				ui.ErrorExit(err)
			}

			usersFile, operator, err := operatorName()
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := config.AddPrincipal(usersFile, operator, args[0], lvl, trusted); err != nil {
				ui.ErrorExit(err)
			}

			fmt.Printf("Principal %q added with level %s\n", args[0], lvl)
			return nil
		},
	}

	cmd.Flags().BoolVar(&trusted, "trusted", false, "Mark the new principal as trusted")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usersFile, operator, err := operatorName()
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := config.RemovePrincipal(usersFile, operator, args[0]); err != nil {
				ui.ErrorExit(err)
			}

			fmt.Printf("Principal %q removed\n", args[0])
			return nil
		},
	}
}

func newSetLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-level [name] [level]",
		Short: "Change a principal's clearance level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := label.Parse(args[1])
			if err != nil {
				ui.ErrorExit(err)
			}

			usersFile, operator, err := operatorName()
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := config.SetLevel(usersFile, operator, args[0], lvl); err != nil {
				ui.ErrorExit(err)
			}

			fmt.Printf("Principal %q now has level %s\n", args[0], lvl)
			return nil
		},
	}
}

func newSetTrustCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-trust [name] [true|false]",
		Short: "Change a principal's trust flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trusted, err := strconv.ParseBool(args[1])
			if err != nil {
				ui.ErrorExit(fmt.Errorf("trust value must be true or false: %w", err))
			}

			usersFile, operator, err := operatorName()
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := config.SetTrust(usersFile, operator, args[0], trusted); err != nil {
				ui.ErrorExit(err)
			}

			state := "untrusted"
			if trusted {
				state = "trusted"
			}

			fmt.Printf("Principal %q is now %s\n", args[0], state)
			return nil
		},
	}
}
