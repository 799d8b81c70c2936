package fs

import (
	"context"
	"errors"
	"path"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/safedep/blpfs/usefulerror"
	"golang.org/x/sys/unix"
)

// blpNode implements the kernel callbacks on top of the Mediator. Every
// node shares the one mediator; a node only knows its position in the
// tree, from which its virtual path is derived.
type blpNode struct {
	fs.Inode
	m *Mediator
}

var _ fs.NodeGetattrer = (*blpNode)(nil)
var _ fs.NodeLookuper = (*blpNode)(nil)
var _ fs.NodeReaddirer = (*blpNode)(nil)
var _ fs.NodeAccesser = (*blpNode)(nil)
var _ fs.NodeOpener = (*blpNode)(nil)
var _ fs.NodeCreater = (*blpNode)(nil)
var _ fs.NodeUnlinker = (*blpNode)(nil)
var _ fs.NodeMkdirer = (*blpNode)(nil)
var _ fs.NodeRmdirer = (*blpNode)(nil)
var _ fs.NodeSetattrer = (*blpNode)(nil)

// vpath returns the node's path relative to the mount root, always
// beginning with "/".
func (n *blpNode) vpath() string {
	return "/" + n.Path(n.Root())
}

// errno maps the mediator's error families onto POSIX errnos. Policy
// denials are always EACCES; substrate errors keep their natural kind.
func errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	if ue, ok := usefulerror.AsUsefulError(err); ok {
		switch ue.Code() {
		case usefulerror.ErrCodePermissionDenied:
			return syscall.EACCES
		case usefulerror.ErrCodeNotFound:
			return syscall.ENOENT
		case usefulerror.ErrCodeIsADirectory:
			return syscall.EISDIR
		case usefulerror.ErrCodeNotADirectory:
			return syscall.ENOTDIR
		case usefulerror.ErrCodeInvalidArgument:
			return syscall.EINVAL
		default:
			return syscall.EIO
		}
	}

	var e syscall.Errno
	if errors.As(err, &e) {
		return e
	}

	return syscall.EIO
}

func attrFromStat(st *unix.Stat_t, out *fuse.Attr) {
	out.Ino = st.Ino
	out.Size = uint64(st.Size)
	out.Blocks = uint64(st.Blocks)
	out.Blksize = uint32(st.Blksize)
	out.Mode = uint32(st.Mode)
	out.Nlink = uint32(st.Nlink)
	out.Owner = fuse.Owner{Uid: st.Uid, Gid: st.Gid}
	out.Atime = uint64(st.Atim.Sec)
	out.Atimensec = uint32(st.Atim.Nsec)
	out.Mtime = uint64(st.Mtim.Sec)
	out.Mtimensec = uint32(st.Mtim.Nsec)
	out.Ctime = uint64(st.Ctim.Sec)
	out.Ctimensec = uint32(st.Ctim.Nsec)
}

func stableAttr(st *unix.Stat_t) fs.StableAttr {
	return fs.StableAttr{
		Mode: uint32(st.Mode) & uint32(unix.S_IFMT),
		Ino:  st.Ino,
	}
}

func (n *blpNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if mf, ok := f.(*mediatedFile); ok {
		return mf.Getattr(ctx, out)
	}

	st, err := n.m.Getattr(n.vpath())
	if err != nil {
		return errno(err)
	}

	attrFromStat(&st, &out.Attr)
	return 0
}

func (n *blpNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childVPath := path.Join(n.vpath(), name)

	st, err := n.m.Getattr(childVPath)
	if err != nil {
		return nil, errno(err)
	}

	attrFromStat(&st, &out.Attr)

	child := &blpNode{m: n.m}
	return n.NewInode(ctx, child, stableAttr(&st)), 0
}

func (n *blpNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.m.List(n.vpath())
	if err != nil {
		return nil, errno(err)
	}

	dirents := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		dirents = append(dirents, fuse.DirEntry{
			Name: e.Name,
			Mode: e.Mode & uint32(unix.S_IFMT),
			Ino:  e.Ino,
		})
	}

	return fs.NewListDirStream(dirents), 0
}

func (n *blpNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	return errno(n.m.Access(n.vpath()))
}

func (n *blpNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	fd, appendOnly, err := n.m.Open(n.vpath(), flags)
	if err != nil {
		return nil, 0, errno(err)
	}

	return newMediatedFile(fd, n.vpath(), appendOnly, n.m), fuse.FOPEN_DIRECT_IO, 0
}

func (n *blpNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childVPath := path.Join(n.vpath(), name)

	fd, err := n.m.Create(childVPath, flags, mode)
	if err != nil {
		return nil, nil, 0, errno(err)
	}

	st, err := n.m.Getattr(childVPath)
	if err != nil {
		unix.Close(fd)
		return nil, nil, 0, errno(err)
	}

	attrFromStat(&st, &out.Attr)

	child := &blpNode{m: n.m}
	inode := n.NewInode(ctx, child, stableAttr(&st))

	appendOnly := flags&uint32(unix.O_APPEND) != 0
	return inode, newMediatedFile(fd, childVPath, appendOnly, n.m), fuse.FOPEN_DIRECT_IO, 0
}

func (n *blpNode) Unlink(ctx context.Context, name string) syscall.Errno {
	return errno(n.m.Unlink(path.Join(n.vpath(), name)))
}

func (n *blpNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childVPath := path.Join(n.vpath(), name)

	if err := n.m.Mkdir(childVPath, mode); err != nil {
		return nil, errno(err)
	}

	st, err := n.m.Getattr(childVPath)
	if err != nil {
		return nil, errno(err)
	}

	attrFromStat(&st, &out.Attr)

	child := &blpNode{m: n.m}
	return n.NewInode(ctx, child, stableAttr(&st)), 0
}

func (n *blpNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errno(n.m.Rmdir(path.Join(n.vpath(), name)))
}

func (n *blpNode) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	err := n.m.Setattr(n.vpath(), func(full string) error {
		if sz, ok := in.GetSize(); ok {
			if err := unix.Truncate(full, int64(sz)); err != nil {
				return err
			}
		}

		if mode, ok := in.GetMode(); ok {
			if err := unix.Chmod(full, mode); err != nil {
				return err
			}
		}

		atime, aok := in.GetATime()
		mtime, mok := in.GetMTime()
		if aok || mok {
			now := time.Now()
			if !aok {
				atime = now
			}
			if !mok {
				mtime = now
			}

			tv := []unix.Timeval{
				unix.NsecToTimeval(atime.UnixNano()),
				unix.NsecToTimeval(mtime.UnixNano()),
			}
			if err := unix.Utimes(full, tv); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errno(err)
	}

	st, gerr := n.m.Getattr(n.vpath())
	if gerr != nil {
		return errno(gerr)
	}

	attrFromStat(&st, &out.Attr)
	return 0
}
