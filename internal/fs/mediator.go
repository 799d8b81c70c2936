package fs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	"github.com/safedep/blpfs/internal/auditlog"
	"github.com/safedep/blpfs/label"
	"github.com/safedep/blpfs/policy"
	"github.com/safedep/blpfs/principal"
	"github.com/safedep/blpfs/usefulerror"
	"github.com/safedep/dry/log"
	"golang.org/x/sys/unix"
)

// Mediator is the reference monitor. Every filesystem operation, whether
// it arrives through the kernel mount or through the expurgate extension,
// goes through one of its methods: resolve the principal, infer the
// object label, ask the policy engine, write the audit record, then act
// on the backing tree.
//
// The identity resolver is injected at construction so tests can run
// with deterministic principals. The mediator holds no per-principal
// state and caches nothing: both the principal and the label are
// recomputed on every operation.
type Mediator struct {
	root     string
	resolver principal.Resolver
	audit    *auditlog.Logger
	session  string
}

// NewMediator builds a mediator over the backing root. The root must
// exist and be a directory.
func NewMediator(root string, resolver principal.Resolver, audit *auditlog.Logger) (*Mediator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backing root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("backing root %s is not accessible: %w", absRoot, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("backing root %s is not a directory", absRoot)
	}

	return &Mediator{
		root:     absRoot,
		resolver: resolver,
		audit:    audit,
		session:  uuid.NewString(),
	}, nil
}

// Root returns the absolute backing root.
func (m *Mediator) Root() string {
	return m.root
}

// normalize cleans a virtual path into a root-relative form. Paths that
// still point above the root after normalization are escape attempts.
func normalize(vpath string) (string, bool) {
	cleaned := path.Clean(strings.TrimPrefix(vpath, "/"))
	if cleaned == "." {
		cleaned = ""
	}

	// A normalized path that still begins with ".." climbs above the
	// backing root.
	escaped := cleaned == ".." || strings.HasPrefix(cleaned, "../")
	return cleaned, escaped
}

// fullPath translates a virtual path into a backing path. Escape
// attempts are a policy violation, not a substrate error: the caller
// gets PERMISSION_DENIED and the audit trail gets a PATH_ESCAPE record.
func (m *Mediator) fullPath(p principal.Principal, action, vpath string) (string, error) {
	rel, escaped := normalize(vpath)
	if escaped {
		m.record(p, action, vpath, auditlog.StatusDenied, "PATH_ESCAPE")
		return "", usefulerror.PolicyDenied("path escapes the backing root")
	}

	full, err := securejoin.SecureJoin(m.root, rel)
	if err != nil {
		m.record(p, action, vpath, auditlog.StatusDenied, "PATH_ESCAPE")
		return "", usefulerror.PolicyDenied("path escapes the backing root")
	}

	return full, nil
}

// record emits one audit line. Audit failures surface as IO errors on
// the operation being mediated but never tear down the mount.
func (m *Mediator) record(p principal.Principal, action, vpath, status, extra string) error {
	err := m.audit.Log(auditlog.Record{
		User:   p.Name,
		Level:  p.Clearance,
		Action: action,
		Path:   vpath,
		Status: status,
		Extra:  extra,
	})
	if err != nil {
		log.Errorf("[%s] audit write failed for %s %s: %v", m.session, action, vpath, err)
		return usefulerror.Useful().
			WithCode(usefulerror.ErrCodeIOError).
			WithHumanError("Failed to write the audit record").
			Wrap(err)
	}

	return nil
}

// decide resolves the principal and evaluates policy for one operation.
func (m *Mediator) decide(op policy.Operation, vpath string, intent policy.Intent) (principal.Principal, policy.Decision) {
	p := m.resolver.CurrentPrincipal()
	objectLabel := label.Infer(vpath)
	dec := policy.Decide(p, op, objectLabel, intent)

	log.Debugf("[%s] %s %s by %s(%s,trusted=%v) object=%s -> %v",
		m.session, op, vpath, p.Name, p.Clearance, p.Trusted, objectLabel, dec.Outcome)

	return p, dec
}

// deny writes the denial record and returns the uniform policy error.
// Policy denials never leak the backing filesystem's error kinds.
func (m *Mediator) deny(p principal.Principal, action, vpath string, dec policy.Decision) error {
	if err := m.record(p, action, vpath, auditlog.StatusDenied, dec.Reason); err != nil {
		return err
	}
	return usefulerror.PolicyDenied(dec.Reason)
}

// grantExtra renders the downgrade annotation for granted decisions.
func grantExtra(dec policy.Decision) string {
	if dec.Outcome == policy.GrantAsDowngrade {
		return fmt.Sprintf("trusted downgrade %s->%s", dec.From, dec.To)
	}
	return ""
}

// substrate converts a backing filesystem error into its own error
// family. These are never masked as permission problems.
func substrate(err error) error {
	code := usefulerror.ErrCodeIOError
	human := "The backing filesystem reported an error"

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			code, human = usefulerror.ErrCodeNotFound, "No such file or directory"
		case syscall.EISDIR:
			code, human = usefulerror.ErrCodeIsADirectory, "Target is a directory"
		case syscall.ENOTDIR:
			code, human = usefulerror.ErrCodeNotADirectory, "Target is not a directory"
		}
	} else if os.IsNotExist(err) {
		code, human = usefulerror.ErrCodeNotFound, "No such file or directory"
	}

	return usefulerror.Useful().WithCode(code).WithHumanError(human).Wrap(err)
}

// Getattr returns the backing attributes of a virtual path. Metadata is
// not confidential: the policy always grants, and per the original
// behavior getattr is not audited to keep the journal proportional to
// decisions that can deny.
func (m *Mediator) Getattr(vpath string) (unix.Stat_t, error) {
	p := m.resolver.CurrentPrincipal()

	full, err := m.fullPath(p, string(policy.OpGetAttr), vpath)
	if err != nil {
		return unix.Stat_t{}, err
	}

	var st unix.Stat_t
	if err := unix.Lstat(full, &st); err != nil {
		return unix.Stat_t{}, substrate(err)
	}

	return st, nil
}

// Entry is one directory listing entry together with its inferred label.
type Entry struct {
	Name  string
	Mode  uint32
	Ino   uint64
	Level label.Sensitivity
}

// List enumerates a directory. Entries above the caller's clearance are
// still listed, preserving the ability to write up into a known-named
// destination, but each produces an audit record annotating the
// visibility. Opening them remains subject to per-operation checks.
func (m *Mediator) List(vpath string) ([]Entry, error) {
	p, dec := m.decide(policy.OpReadDir, vpath, policy.Intent{})

	full, err := m.fullPath(p, string(policy.OpReadDir), vpath)
	if err != nil {
		return nil, err
	}

	if !dec.Granted() {
		return nil, m.deny(p, string(policy.OpReadDir), vpath, dec)
	}

	dirents, err := os.ReadDir(full)
	if err != nil {
		m.record(p, string(policy.OpReadDir), vpath, auditlog.StatusError, err.Error())
		return nil, substrate(err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		childVPath := path.Join("/", vpath, de.Name())
		entryLevel := label.Infer(childVPath)

		if entryLevel > p.Clearance {
			m.record(p, "readdir_entry", childVPath, auditlog.StatusGranted,
				fmt.Sprintf("entry level %s above clearance", entryLevel))
		}

		var st unix.Stat_t
		mode := uint32(unix.S_IFREG)
		var ino uint64
		if err := unix.Lstat(filepath.Join(full, de.Name()), &st); err == nil {
			mode = uint32(st.Mode)
			ino = st.Ino
		}

		entries = append(entries, Entry{
			Name:  de.Name(),
			Mode:  mode,
			Ino:   ino,
			Level: entryLevel,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if err := m.record(p, string(policy.OpReadDir), vpath, auditlog.StatusGranted, ""); err != nil {
		return nil, err
	}

	return entries, nil
}

// Access evaluates the no-read-up check for an access(2) style probe.
func (m *Mediator) Access(vpath string) error {
	p, dec := m.decide(policy.OpAccess, vpath, policy.Intent{})

	if _, err := m.fullPath(p, string(policy.OpAccess), vpath); err != nil {
		return err
	}

	if !dec.Granted() {
		return m.deny(p, string(policy.OpAccess), vpath, dec)
	}

	return m.record(p, string(policy.OpAccess), vpath, auditlog.StatusGranted, "")
}

// openIntent classifies open(2) flags into the policy operations they
// imply. O_RDWR implies both: either failing denies the open.
type openIntent struct {
	read    bool
	write   bool
	appends bool
}

func intentFromFlags(flags uint32) openIntent {
	accMode := flags & uint32(unix.O_ACCMODE)
	return openIntent{
		read:    accMode == uint32(os.O_RDONLY) || accMode == uint32(os.O_RDWR),
		write:   accMode == uint32(os.O_WRONLY) || accMode == uint32(os.O_RDWR),
		appends: flags&uint32(os.O_APPEND) != 0,
	}
}

func (i openIntent) action() string {
	switch {
	case i.appends:
		return string(policy.OpOpenAppend)
	case i.read && i.write:
		return "open_rdwr"
	case i.write:
		return string(policy.OpOpenWrite)
	default:
		return string(policy.OpOpenRead)
	}
}

// Open mediates open(2). The returned fd is the opaque handle: read and
// write trust it and do not re-evaluate policy, per the open-time check
// model. For append-intent opens the backing fd keeps O_APPEND so every
// write lands at end-of-file regardless of the caller's offset.
func (m *Mediator) Open(vpath string, flags uint32) (fd int, appendOnly bool, err error) {
	intent := intentFromFlags(flags)
	action := intent.action()

	p := m.resolver.CurrentPrincipal()
	objectLabel := label.Infer(vpath)

	full, err := m.fullPath(p, action, vpath)
	if err != nil {
		return -1, false, err
	}

	if intent.read {
		if dec := policy.Decide(p, policy.OpOpenRead, objectLabel, policy.Intent{}); !dec.Granted() {
			return -1, false, m.deny(p, action, vpath, dec)
		}
	}

	var writeDec policy.Decision
	if intent.write || intent.appends {
		writeOp := policy.OpOpenWrite
		if intent.appends {
			writeOp = policy.OpOpenAppend
		}
		writeDec = policy.Decide(p, writeOp, objectLabel, policy.Intent{})
		if !writeDec.Granted() {
			return -1, false, m.deny(p, action, vpath, writeDec)
		}
	}

	openFlags := mangleOpenFlags(flags)
	fd, oerr := unix.Open(full, openFlags, 0)
	if oerr != nil {
		m.record(p, action, vpath, auditlog.StatusError, oerr.Error())
		return -1, false, substrate(oerr)
	}

	if err := m.record(p, action, vpath, auditlog.StatusGranted, grantExtra(writeDec)); err != nil {
		unix.Close(fd)
		return -1, false, err
	}

	return fd, intent.appends, nil
}

// Create mediates creat(2)/open(O_CREAT). The label is inferred from the
// target path, so creation follows the same symmetric write rule: at or
// above the caller's level always, below it only for trusted principals.
// An existing target is truncated once policy grants.
func (m *Mediator) Create(vpath string, flags uint32, mode uint32) (int, error) {
	p, dec := m.decide(policy.OpCreate, vpath, policy.Intent{})

	full, err := m.fullPath(p, string(policy.OpCreate), vpath)
	if err != nil {
		return -1, err
	}

	if !dec.Granted() {
		return -1, m.deny(p, string(policy.OpCreate), vpath, dec)
	}

	openFlags := mangleOpenFlags(flags) | unix.O_CREAT | unix.O_TRUNC
	fd, oerr := unix.Open(full, openFlags, mode)
	if oerr != nil {
		m.record(p, string(policy.OpCreate), vpath, auditlog.StatusError, oerr.Error())
		return -1, substrate(oerr)
	}

	if err := m.record(p, string(policy.OpCreate), vpath, auditlog.StatusGranted, grantExtra(dec)); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

// Mkdir follows the Create rule: the new directory's label comes from
// its own path.
func (m *Mediator) Mkdir(vpath string, mode uint32) error {
	p, dec := m.decide(policy.OpCreate, vpath, policy.Intent{})

	full, err := m.fullPath(p, "mkdir", vpath)
	if err != nil {
		return err
	}

	if !dec.Granted() {
		return m.deny(p, "mkdir", vpath, dec)
	}

	if err := unix.Mkdir(full, mode); err != nil {
		m.record(p, "mkdir", vpath, auditlog.StatusError, err.Error())
		return substrate(err)
	}

	return m.record(p, "mkdir", vpath, auditlog.StatusGranted, grantExtra(dec))
}

// Unlink enforces no-delete-up.
func (m *Mediator) Unlink(vpath string) error {
	return m.remove(vpath, string(policy.OpUnlink), unix.Unlink)
}

// Rmdir follows the Unlink rule.
func (m *Mediator) Rmdir(vpath string) error {
	return m.remove(vpath, "rmdir", unix.Rmdir)
}

func (m *Mediator) remove(vpath, action string, backing func(string) error) error {
	p, dec := m.decide(policy.OpUnlink, vpath, policy.Intent{})

	full, err := m.fullPath(p, action, vpath)
	if err != nil {
		return err
	}

	if !dec.Granted() {
		return m.deny(p, action, vpath, dec)
	}

	if err := backing(full); err != nil {
		m.record(p, action, vpath, auditlog.StatusError, err.Error())
		return substrate(err)
	}

	return m.record(p, action, vpath, auditlog.StatusGranted, "")
}

// Setattr mediates truncate/chmod/utimes. Changing an object is a write,
// so the write-direction rule applies, including the trusted downgrade.
func (m *Mediator) Setattr(vpath string, apply func(full string) error) error {
	p, dec := m.decide(policy.OpOpenWrite, vpath, policy.Intent{})

	full, err := m.fullPath(p, "setattr", vpath)
	if err != nil {
		return err
	}

	if !dec.Granted() {
		return m.deny(p, "setattr", vpath, dec)
	}

	if err := apply(full); err != nil {
		m.record(p, "setattr", vpath, auditlog.StatusError, err.Error())
		return substrate(err)
	}

	return m.record(p, "setattr", vpath, auditlog.StatusGranted, grantExtra(dec))
}

// auditIO emits the per-call read/write records for an open handle.
// Policy is not re-evaluated here: the kernel may issue many reads per
// open, and the open-time check governs them all.
func (m *Mediator) auditIO(action, vpath, status, extra string) error {
	p := m.resolver.CurrentPrincipal()
	return m.record(p, action, vpath, status, extra)
}

// mangleOpenFlags converts kernel-supplied open flags into the flags
// used on the backing file. O_CREAT is stripped (Create is a separate
// operation) and O_NOFOLLOW is forced so a symlink planted in the
// backing tree cannot redirect the open.
func mangleOpenFlags(flags uint32) int {
	newFlags := int(flags)
	newFlags &^= unix.O_CREAT
	newFlags |= unix.O_NOFOLLOW
	return newFlags
}
