package shell

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/safedep/blpfs/config"
	"github.com/safedep/blpfs/internal/ui"
	"github.com/safedep/blpfs/principal"
	"github.com/spf13/cobra"
)

// The interactive shell drives the mounted filesystem the way a user
// would: every file operation goes through the mount point, so the
// kernel delivers it to the mediator like any other access. The shell
// itself holds no authority; `login` only rewrites the session file the
// resolver reads per operation.

func NewShellCommand() *cobra.Command {
	var mountPoint string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell over the mounted filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(nil)
			if err != nil {
				ui.ErrorExit(err)
			}

			if mountPoint == "" {
				mountPoint = cfg.MountPoint
			}

			if mountPoint == "" {
				ui.ErrorExit(fmt.Errorf("no mountpoint configured; mount first or pass --mount-point"))
			}

			s, err := newShell(mountPoint)
			if err != nil {
				ui.ErrorExit(err)
			}

			s.run()
			return nil
		},
	}

	cmd.Flags().StringVar(&mountPoint, "mount-point", "",
		"Mounted filesystem root (defaults to the recorded mount configuration)")

	return cmd
}

type shell struct {
	mountPoint  string
	sessionFile string
	resolver    *principal.StoreResolver

	// cwd is the working directory relative to the mount root, ""
	// meaning the root itself.
	cwd string
}

func newShell(mountPoint string) (*shell, error) {
	sessionFile, err := config.SessionFilePath()
	if err != nil {
		return nil, err
	}

	resolver, err := principal.NewStoreResolver()
	if err != nil {
		return nil, err
	}

	return &shell{
		mountPoint:  mountPoint,
		sessionFile: sessionFile,
		resolver:    resolver,
	}, nil
}

func (s *shell) run() {
	fmt.Printf("blpfs shell over %s\n", s.mountPoint)
	fmt.Println("Type `help` for commands, `exit` or Ctrl-D to leave.")

	p := prompt.New(
		s.execute,
		s.complete,
		prompt.OptionTitle("blpfs-shell"),
		prompt.OptionLivePrefix(s.prefix),
	)
	p.Run()
}

func (s *shell) prefix() (string, bool) {
	name := s.resolver.CurrentPrincipal().Name
	return fmt.Sprintf("%s:/%s$ ", name, s.cwd), true
}

var commandNames = []string{
	"login", "whoami", "ls", "cd", "pwd", "cat", "write", "append",
	"rm", "mkdir", "expurgate", "help", "exit",
}

func (s *shell) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}

	suggestions := make([]prompt.Suggest, 0, len(commandNames))
	for _, name := range commandNames {
		suggestions = append(suggestions, prompt.Suggest{Text: name})
	}

	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (s *shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "login":
		s.login(args)
	case "whoami":
		s.whoami()
	case "ls":
		s.list(args)
	case "cd":
		s.chdir(args)
	case "pwd":
		fmt.Printf("/%s\n", s.cwd)
	case "cat":
		s.cat(args)
	case "write":
		s.writeFile(args, false)
	case "append":
		s.writeFile(args, true)
	case "rm":
		s.remove(args)
	case "mkdir":
		s.mkdir(args)
	case "expurgate":
		s.expurgate(args)
	case "help":
		s.help()
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Println(ui.Colors.Red("unknown command: %s", cmd))
	}
}

func (s *shell) help() {
	fmt.Println("Commands:")
	fmt.Println("  login <user>              bind the session to a principal")
	fmt.Println("  whoami                    show the current principal")
	fmt.Println("  ls [path]                 list a directory")
	fmt.Println("  cd <path>                 change the working directory")
	fmt.Println("  pwd                       print the working directory")
	fmt.Println("  cat <file>                print a file")
	fmt.Println("  write <file> <text...>    overwrite a file")
	fmt.Println("  append <file> <text...>   append to a file")
	fmt.Println("  rm <file>                 remove a file")
	fmt.Println("  mkdir <dir>               create a directory")
	fmt.Println("  expurgate <src> <dst>     downgrade a file (trusted only)")
	fmt.Println("  exit                      leave the shell")
}

// resolve turns user input into a mount-root-relative path, clamping
// attempts to climb above the root.
func (s *shell) resolve(input string) string {
	var combined string
	if strings.HasPrefix(input, "/") {
		combined = strings.TrimPrefix(input, "/")
	} else {
		combined = path.Join(s.cwd, input)
	}

	cleaned := path.Clean("/" + combined)
	return strings.TrimPrefix(cleaned, "/")
}

// osPath maps a mount-root-relative path to its location under the
// mount point.
func (s *shell) osPath(rel string) string {
	if rel == "" {
		return s.mountPoint
	}
	return s.mountPoint + "/" + rel
}
