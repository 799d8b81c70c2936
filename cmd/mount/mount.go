package mount

import (
	"fmt"
	"os"

	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/auditlog"
	blpfs "github.com/safedep/blpfs/internal/fs"
	"github.com/safedep/blpfs/principal"
	"github.com/safedep/dry/log"
	"github.com/spf13/cobra"
)

var (
	allowOther bool
	debugFuse  bool
	auditPath  string
)

// Exit codes: 0 clean unmount, 1 argument or initialization error,
// 2 mount failure.
const (
	exitInitError  = 1
	exitMountError = 2
)

func NewMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount [backing-dir] [mountpoint]",
		Short: "Mount the labeled view of a backing directory",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			runMount(args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&allowOther, "allow-other", false,
		"Allow other local users to traverse the mount point")
	cmd.Flags().BoolVar(&debugFuse, "debug-fuse", false,
		"Enable kernel protocol debugging")
	cmd.Flags().StringVar(&auditPath, "audit-log", "",
		"Override the audit log location")

	return cmd
}

func runMount(backingDir, mountpoint string) {
	if err := validateDir(backingDir, "backing directory"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInitError)
	}

	if err := validateDir(mountpoint, "mountpoint"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInitError)
	}

	if auditPath == "" {
		p, err := config.DefaultAuditLogPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to determine audit log path: %v\n", err)
			os.Exit(exitInitError)
		}
		auditPath = p
	}

	audit, err := auditlog.Open(auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open audit log: %v\n", err)
		os.Exit(exitInitError)
	}
	defer audit.Close()

	resolver, err := principal.NewStoreResolver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build principal resolver: %v\n", err)
		os.Exit(exitInitError)
	}

	mediator, err := blpfs.NewMediator(backingDir, resolver, audit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build mediator: %v\n", err)
		os.Exit(exitInitError)
	}

	// Record the deployment so the shell and expurgate commands can
	// find the backing tree without re-passing flags.
	if err := config.SaveConfig(config.Config{
		BackingDir: mediator.Root(),
		MountPoint: mountpoint,
		AuditLog:   auditPath,
		AllowOther: allowOther,
	}); err != nil {
		log.Warnf("failed to record mount configuration: %v", err)
	}

	server, err := blpfs.Mount(mountpoint, mediator, blpfs.MountConfig{
		AllowOther: allowOther,
		Debug:      debugFuse,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mount failed: %v\n", err)
		os.Exit(exitMountError)
	}

	fmt.Printf("blpfs: %s mounted at %s (unmount with fusermount -u)\n", backingDir, mountpoint)

	server.Wait()
}

func validateDir(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s %s is not accessible: %w", what, path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s %s is not a directory", what, path)
	}

	return nil
}
