package initialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/ui"
	"github.com/safedep/blpfs/label"
	"github.com/spf13/cobra"
)

// `blpfs init` bootstraps a deployment: the config directory, a seed
// credential store, and the labeled directory skeleton under the
// backing root. Administrators labeling a deployment create directories
// named after the levels at any tier of the tree; init seeds the top
// tier.

func NewInitCommand() *cobra.Command {
	var skipTree bool

	cmd := &cobra.Command{
		Use:   "init [backing-dir]",
		Short: "Initialize configuration and a labeled backing tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backingDir := ""
			if len(args) > 0 {
				backingDir = args[0]
			}

			if err := runInit(backingDir, skipTree); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipTree, "skip-tree", false,
		"Do not create the labeled directory skeleton")

	return cmd
}

func runInit(backingDir string, skipTree bool) error {
	cfgFile, err := config.CreateConfig(config.Config{BackingDir: backingDir})
	if err != nil && !errors.Is(err, config.ErrConfigAlreadyExists) {
		return err
	}

	if errors.Is(err, config.ErrConfigAlreadyExists) {
		fmt.Printf("Config already exists at %s\n", cfgFile)
	} else {
		fmt.Printf("Created config at %s\n", cfgFile)
	}

	usersFile, err := config.UsersFilePath()
	if err != nil {
		return err
	}

	if _, serr := os.Stat(usersFile); os.IsNotExist(serr) {
		if err := config.SaveStore(usersFile, config.DefaultCredentials()); err != nil {
			return err
		}
		fmt.Printf("Seeded credential store at %s\n", usersFile)
	} else {
		fmt.Printf("Credential store already exists at %s\n", usersFile)
	}

	if backingDir == "" || skipTree {
		return nil
	}

	for _, lvl := range label.Levels() {
		dir := filepath.Join(backingDir, strings.ToLower(lvl))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	fmt.Printf("Created labeled directory skeleton under %s\n", backingDir)
	return nil
}
