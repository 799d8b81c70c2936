package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/safedep/blpfs/cmd/expurgate"
	"github.com/safedep/blpfs/cmd/initialize"
	"github.com/safedep/blpfs/cmd/mount"
	"github.com/safedep/blpfs/cmd/shell"
	"github.com/safedep/blpfs/cmd/useradmin"
	"github.com/safedep/blpfs/cmd/version"
	"github.com/safedep/dry/log"
	"github.com/spf13/cobra"
)

func main() {
	// A local .env can seed the USER binding for development setups.
	_ = godotenv.Load(".env")

	log.InitZapLogger("blpfs", "dev")

	cmd := &cobra.Command{
		Use:   "blpfs",
		Short: "Security-labeled passthrough filesystem enforcing Bell-LaPadula MAC",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("blpfs: %s is not a valid command", args[0])
		},
	}

	cmd.AddCommand(initialize.NewInitCommand())
	cmd.AddCommand(mount.NewMountCommand())
	cmd.AddCommand(shell.NewShellCommand())
	cmd.AddCommand(expurgate.NewExpurgateCommand())
	cmd.AddCommand(useradmin.NewUserCommand())
	cmd.AddCommand(version.NewVersionCommand())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
