package fs

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/safedep/dry/log"
)

// MountConfig carries the kernel mount options the command layer can
// influence.
type MountConfig struct {
	// AllowOther lets other local users traverse the mount point.
	AllowOther bool

	// Debug enables go-fuse protocol debugging.
	Debug bool
}

// Mount exposes the mediated view of the backing tree at mountpoint and
// returns the running server. The callback loop is single threaded:
// each operation runs its principal lookup, label inference, policy
// decision, audit write and backing call as one unit, so no two
// decisions interleave.
func Mount(mountpoint string, m *Mediator, cfg MountConfig) (*fuse.Server, error) {
	root := &blpNode{m: m}

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:         "blpfs",
			Name:           "blpfs",
			SingleThreaded: true,
			AllowOther:     cfg.AllowOther,
			Debug:          cfg.Debug,
			DisableXAttrs:  true,
		},
	}

	server, err := fs.Mount(mountpoint, root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", mountpoint, err)
	}

	log.Infof("mounted backing tree %s at %s", m.Root(), mountpoint)
	return server, nil
}
