package fs

import (
	"context"
	"fmt"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/safedep/blpfs/internal/auditlog"
	"golang.org/x/sys/unix"
)

// mediatedFile wraps a backing file descriptor opened by the mediator.
// The open-time policy check governs every read and write through the
// handle; per-call work is limited to the backing I/O plus one audit
// record per call, since the kernel may issue many reads per open.
type mediatedFile struct {
	mu         sync.Mutex
	fd         int
	vpath      string
	appendOnly bool
	m          *Mediator
}

var _ fs.FileReader = (*mediatedFile)(nil)
var _ fs.FileWriter = (*mediatedFile)(nil)
var _ fs.FileGetattrer = (*mediatedFile)(nil)
var _ fs.FileFlusher = (*mediatedFile)(nil)
var _ fs.FileFsyncer = (*mediatedFile)(nil)
var _ fs.FileReleaser = (*mediatedFile)(nil)

func newMediatedFile(fd int, vpath string, appendOnly bool, m *Mediator) *mediatedFile {
	return &mediatedFile{
		fd:         fd,
		vpath:      vpath,
		appendOnly: appendOnly,
		m:          m,
	}
}

func (f *mediatedFile) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := unix.Pread(f.fd, dest, off)
	if err != nil {
		f.m.auditIO("read", f.vpath, auditlog.StatusError, err.Error())
		return nil, fs.ToErrno(err)
	}

	f.m.auditIO("read", f.vpath, auditlog.StatusGranted, fmt.Sprintf("%d bytes", n))
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *mediatedFile) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	var err error

	if f.appendOnly {
		// The backing fd carries O_APPEND: the write lands at
		// end-of-file no matter what offset the caller supplied.
		n, err = unix.Write(f.fd, data)
	} else {
		n, err = unix.Pwrite(f.fd, data, off)
	}

	if err != nil {
		f.m.auditIO("write", f.vpath, auditlog.StatusError, err.Error())
		return 0, fs.ToErrno(err)
	}

	f.m.auditIO("write", f.vpath, auditlog.StatusGranted, fmt.Sprintf("%d bytes", n))
	return uint32(n), 0
}

func (f *mediatedFile) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return fs.ToErrno(err)
	}

	attrFromStat(&st, &out.Attr)
	return 0
}

func (f *mediatedFile) Flush(ctx context.Context) syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Flush is called once per close(2) of a duplicated fd. Dup + close
	// flushes without invalidating the handle for later calls.
	newFd, err := unix.Dup(f.fd)
	if err != nil {
		return fs.ToErrno(err)
	}

	return fs.ToErrno(unix.Close(newFd))
}

func (f *mediatedFile) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	return fs.ToErrno(unix.Fsync(f.fd))
}

func (f *mediatedFile) Release(ctx context.Context) syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd != -1 {
		err := unix.Close(f.fd)
		f.fd = -1
		return fs.ToErrno(err)
	}

	return syscall.EBADF
}
