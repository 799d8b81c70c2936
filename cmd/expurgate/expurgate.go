package expurgate

import (
	"fmt"

	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/auditlog"
	blpfs "github.com/safedep/blpfs/internal/fs"
	"github.com/safedep/blpfs/internal/ui"
	"github.com/safedep/blpfs/principal"
	"github.com/spf13/cobra"
)

// The expurgate command is the extension operation's CLI surface. It
// runs against the backing tree recorded by the mount command, through
// the same mediator (and therefore the same policy and audit path) the
// mount uses.

func NewExpurgateCommand() *cobra.Command {
	var backingDir string

	cmd := &cobra.Command{
		Use:   "expurgate [source] [destination]",
		Short: "Produce an audited, downgraded copy of a higher-labeled file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runExpurgate(backingDir, args[0], args[1]); err != nil {
				ui.ErrorExit(err)
			}

			fmt.Printf("Expurgated %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&backingDir, "backing-dir", "",
		"Backing directory (defaults to the recorded mount configuration)")

	return cmd
}

func runExpurgate(backingDir, src, dst string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}

	if backingDir == "" {
		backingDir = cfg.BackingDir
	}

	if backingDir == "" {
		return fmt.Errorf("no backing directory configured; mount first or pass --backing-dir")
	}

	auditPath := cfg.AuditLog
	if auditPath == "" {
		auditPath, err = config.DefaultAuditLogPath()
		if err != nil {
			return err
		}
	}

	audit, err := auditlog.Open(auditPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	resolver, err := principal.NewStoreResolver()
	if err != nil {
		return err
	}

	mediator, err := blpfs.NewMediator(backingDir, resolver, audit)
	if err != nil {
		return err
	}

	return mediator.Expurgate(src, dst)
}
