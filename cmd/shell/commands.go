package shell

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/auditlog"
	blpfs "github.com/safedep/blpfs/internal/fs"
	"github.com/safedep/blpfs/internal/ui"
	"github.com/safedep/blpfs/label"
)

func (s *shell) login(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: login <user>")
		return
	}

	// The session file is the identity binding the resolver re-reads
	// on every mediated operation: the next operation runs as this
	// principal, without remounting.
	if err := godotenv.Write(map[string]string{"USER": args[0]}, s.sessionFile); err != nil {
		fmt.Println(ui.Colors.Red("login failed: %v", err))
		return
	}

	s.cwd = ""
	fmt.Printf("Logged in as %q. Subsequent operations run as this principal.\n", args[0])
}

func (s *shell) whoami() {
	p := s.resolver.CurrentPrincipal()

	trusted := "untrusted"
	if p.Trusted {
		trusted = "trusted"
	}

	fmt.Printf("%s (%s, %s)\n", p.Name,
		ui.LevelColor(p.Clearance.String())("%s", p.Clearance), trusted)
}

func (s *shell) list(args []string) {
	target := s.cwd
	if len(args) > 0 {
		target = s.resolve(args[0])
	}

	entries, err := os.ReadDir(s.osPath(target))
	if err != nil {
		printOSError(err)
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for _, entry := range entries {
		lvl := label.Infer("/" + target + "/" + entry.Name()).String()
		tag := "FILE"
		name := entry.Name()
		if entry.IsDir() {
			tag = "DIR"
			name += "/"
		}

		fmt.Printf("  [%-4s] %-30s %s\n", tag, name, ui.LevelColor(lvl)("%s", lvl))
	}
}

func (s *shell) chdir(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: cd <path>")
		return
	}

	target := s.resolve(args[0])

	info, err := os.Stat(s.osPath(target))
	if err != nil {
		printOSError(err)
		return
	}

	if !info.IsDir() {
		fmt.Println(ui.Colors.Red("not a directory: %s", args[0]))
		return
	}

	s.cwd = target
}

func (s *shell) cat(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: cat <file>")
		return
	}

	content, err := os.ReadFile(s.osPath(s.resolve(args[0])))
	if err != nil {
		printOSError(err)
		return
	}

	os.Stdout.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		fmt.Println()
	}
}

func (s *shell) writeFile(args []string, appendMode bool) {
	if len(args) < 2 {
		if appendMode {
			fmt.Println("usage: append <file> <text...>")
		} else {
			fmt.Println("usage: write <file> <text...>")
		}
		return
	}

	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(s.osPath(s.resolve(args[0])), flags, 0o644)
	if err != nil {
		printOSError(err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(args[1:], " ") + "\n"); err != nil {
		printOSError(err)
	}
}

func (s *shell) remove(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: rm <file>")
		return
	}

	if err := os.Remove(s.osPath(s.resolve(args[0]))); err != nil {
		printOSError(err)
	}
}

func (s *shell) mkdir(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: mkdir <dir>")
		return
	}

	if err := os.Mkdir(s.osPath(s.resolve(args[0])), 0o755); err != nil {
		printOSError(err)
	}
}

// expurgate runs the extension operation. It is not a kernel callback,
// so the shell reaches the mediator directly over the recorded backing
// tree instead of going through the mount.
func (s *shell) expurgate(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: expurgate <src> <dst>")
		return
	}

	cfg, err := config.Load(nil)
	if err != nil || cfg.BackingDir == "" {
		fmt.Println(ui.Colors.Red("no backing directory recorded; mount first"))
		return
	}

	auditPath := cfg.AuditLog
	if auditPath == "" {
		if auditPath, err = config.DefaultAuditLogPath(); err != nil {
			fmt.Println(ui.Colors.Red("%v", err))
			return
		}
	}

	audit, err := auditlog.Open(auditPath)
	if err != nil {
		fmt.Println(ui.Colors.Red("%v", err))
		return
	}
	defer audit.Close()

	mediator, err := blpfs.NewMediator(cfg.BackingDir, s.resolver, audit)
	if err != nil {
		fmt.Println(ui.Colors.Red("%v", err))
		return
	}

	src := "/" + s.resolve(args[0])
	dst := "/" + s.resolve(args[1])

	if err := mediator.Expurgate(src, dst); err != nil {
		fmt.Println(ui.Colors.Red("expurgate failed: %v", err))
		return
	}

	fmt.Printf("Expurgated %s -> %s\n", src, dst)
}

func printOSError(err error) {
	if os.IsPermission(err) {
		fmt.Println(ui.Colors.Red("permission denied by the security policy"))
		return
	}

	fmt.Println(ui.Colors.Red("%v", err))
}
