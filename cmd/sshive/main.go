package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"sshive/pkg/launcher"
	"sshive/pkg/manager"
	"sshive/pkg/tui"
)

var (
	flagConfig    string
	flagStore     string
	flagHost      string
	flagHere      bool
	flagDryRun    bool
	flagQuery     string
	flagSkipCheck bool
	flagTerminal  string
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "Path to YAML settings (defaults to XDG paths if empty)")
	flag.StringVar(&flagStore, "connections", "", "Path to the connections JSON store (defaults to XDG paths if empty)")
	flag.StringVar(&flagHost, "host", "", "Connect directly to a stored connection by name")
	flag.BoolVar(&flagHere, "here", false, "With --host: run ssh in this terminal instead of spawning an emulator")
	flag.BoolVar(&flagDryRun, "dry-run", false, "With --host: print the ssh command and exit")
	flag.StringVar(&flagQuery, "query", "", "Initial filter for the picker")
	flag.BoolVar(&flagSkipCheck, "skip-check", false, "Skip the active credential check before launching")
	flag.StringVar(&flagTerminal, "terminal", "", "Pin a terminal emulator by name instead of probing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sshive - SSH connection manager\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  sshive [options]                      open the grouped picker\n")
		fmt.Fprintf(os.Stderr, "  sshive --host <name> [--here]         connect to a stored connection\n")
		fmt.Fprintf(os.Stderr, "  sshive list\n")
		fmt.Fprintf(os.Stderr, "  sshive add [add options]\n")
		fmt.Fprintf(os.Stderr, "  sshive rm <name>\n")
		fmt.Fprintf(os.Stderr, "  sshive import [--ssh-config <path>] [--group <name>]\n")
		fmt.Fprintf(os.Stderr, "  sshive check <name>\n")
		fmt.Fprintf(os.Stderr, "  sshive cred <set|get|delete> <name>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sshive
  sshive --query prod
  sshive --host web-1
  sshive --host web-1 --here
  sshive add --name web-1 --addr web1.example.com --user deploy --group Production
  sshive cred set web-1
`)
	}
}

func main() {
	flag.Parse()

	if flag.NArg() >= 1 {
		var err error
		switch flag.Arg(0) {
		case "list":
			err = runList()
		case "add":
			err = runAdd(flag.Args()[1:])
		case "rm":
			err = runRemove(flag.Args()[1:])
		case "import":
			err = runImport(flag.Args()[1:])
		case "check":
			err = runCheck(flag.Args()[1:])
		case "cred":
			err = runCred(flag.Args()[1:])
		default:
			fmt.Fprintf(os.Stderr, "sshive: unknown command %q\n\n", flag.Arg(0))
			flag.Usage()
			os.Exit(2)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "sshive: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flagHost != "" {
		if err := runConnect(flagHost); err != nil {
			fmt.Fprintf(os.Stderr, "sshive: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runPicker(); err != nil {
		fmt.Fprintf(os.Stderr, "sshive: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvironment loads the store, settings and a configured launcher.
// Missing settings fall back to the defaults silently; a broken settings
// file is an error the user should see.
func loadEnvironment() (*manager.Store, *manager.Settings, *launcher.Launcher, error) {
	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return nil, nil, nil, err
	}

	settings, _, err := manager.LoadSettings(flagConfig)
	if err != nil {
		if !errors.Is(err, manager.ErrSettingsNotFound) {
			return nil, nil, nil, err
		}
		settings = manager.DefaultSettings()
	}

	l := launcher.NewLauncher()
	l.Terminal = settings.Terminal
	l.CleanupDelay = settings.CleanupDelay()
	l.CheckTimeout = settings.CheckTimeout()
	if flagTerminal != "" {
		l.Terminal = flagTerminal
	}
	if pin := strings.TrimSpace(l.Terminal); pin != "" && !knownTerminal(l, pin) {
		return nil, nil, nil, fmt.Errorf("unknown terminal %q (known: %s)", pin, strings.Join(l.KnownTerminalNames(), ", "))
	}

	return store, settings, l, nil
}

func knownTerminal(l *launcher.Launcher, name string) bool {
	for _, n := range l.KnownTerminalNames() {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func runPicker() error {
	store, settings, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	return tui.Run(store, l, tui.Options{
		InitialQuery:        flagQuery,
		SkipCredentialCheck: flagSkipCheck || settings.SkipCredentialCheck,
	})
}

// resolveConnection finds a stored connection by name and fills in its
// password from the OS credential store when one is saved. The returned
// record is a copy; the store is never mutated.
func resolveConnection(store *manager.Store, name string) (*manager.Connection, error) {
	c := store.ByName(name)
	if c == nil {
		return nil, fmt.Errorf("connection %q not found (see `sshive list`)", name)
	}
	conn := *c
	if conn.Password == "" {
		if secret, err := manager.CredReveal(conn.Name); err == nil {
			conn.Password = secret
		}
	}
	return &conn, nil
}

func runConnect(name string) error {
	store, settings, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	conn, err := resolveConnection(store, name)
	if err != nil {
		return err
	}

	if flagDryRun {
		fmt.Println(strings.Join(conn.SSHCommand(), " "))
		return nil
	}

	if err := l.Validate(conn); err != nil {
		return err
	}
	if !flagSkipCheck && !settings.SkipCredentialCheck {
		if err := l.CheckCredentials(context.Background(), conn); err != nil {
			return err
		}
	}

	if flagHere {
		return runInlineConnect(l, conn)
	}
	if err := l.Launch(conn); err != nil {
		return err
	}
	fmt.Printf("launched %s\n", conn.String())
	return nil
}

func runList() error {
	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return err
	}
	if store.Len() == 0 {
		fmt.Printf("no connections in %s\n", store.Path())
		return nil
	}
	groups := store.Groups()
	for _, g := range store.GroupNames() {
		fmt.Printf("%s\n", g)
		for _, c := range groups[g] {
			extra := ""
			if c.KeyPath != "" {
				extra = "  key=" + c.KeyPath
			}
			fmt.Printf("  %s%s\n", c.String(), extra)
		}
	}
	return nil
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var name, addr, user, key, group, icon string
	var port int
	var askPass bool
	fs.StringVar(&name, "name", "", "Display name (required)")
	fs.StringVar(&addr, "addr", "", "Hostname or IP (required)")
	fs.StringVar(&user, "user", "", "Remote login name (required)")
	fs.IntVar(&port, "port", 22, "SSH port")
	fs.StringVar(&key, "key", "", "Path to a private key (may be ~-relative, may be .ppk)")
	fs.StringVar(&group, "group", manager.DefaultGroup, "Group for the picker tree")
	fs.StringVar(&icon, "icon", "", "Icon name (presentation only)")
	fs.BoolVar(&askPass, "password", false, "Prompt for a password and store it in the "+manager.CredentialBackendLabel())
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return err
	}

	conn := manager.NewConnection(name, addr, user)
	conn.Port = port
	conn.KeyPath = key
	conn.Group = group
	conn.Icon = icon

	if err := store.Add(conn); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Printf("added %s\n", conn.String())

	if askPass {
		secret, err := manager.PromptSecret(fmt.Sprintf("Password for %s", conn.Name))
		if err != nil {
			return err
		}
		if err := manager.CredSet(conn.Name, secret); err != nil {
			return err
		}
		fmt.Printf("stored password for %s in %s\n", conn.Name, manager.CredentialBackendLabel())
	}
	return nil
}

func runRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sshive rm <name>")
	}
	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return err
	}
	c := store.ByName(args[0])
	if c == nil {
		return fmt.Errorf("connection %q not found", args[0])
	}
	store.Delete(c.ID)
	if err := store.Save(); err != nil {
		return err
	}
	// Best-effort: drop any stored password along with the profile.
	_ = manager.CredDelete(c.Name)
	fmt.Printf("removed %s\n", c.Name)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	var sshConfig, group string
	fs.StringVar(&sshConfig, "ssh-config", "", "OpenSSH client config to read (default ~/.ssh/config)")
	fs.StringVar(&group, "group", "", "Group for the imported connections (default: per-connection default)")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return err
	}
	added, err := store.ImportSSHConfig(sshConfig, group)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		fmt.Println("nothing to import")
		return nil
	}
	if err := store.Save(); err != nil {
		return err
	}
	for _, name := range added {
		fmt.Printf("imported %s\n", name)
	}
	return nil
}

func runCheck(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sshive check <name>")
	}
	store, _, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	conn, err := resolveConnection(store, args[0])
	if err != nil {
		return err
	}
	if err := l.Validate(conn); err != nil {
		return err
	}
	if err := l.CheckCredentials(context.Background(), conn); err != nil {
		return err
	}
	fmt.Printf("%s: credentials OK\n", conn.Name)
	return nil
}

func runCred(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: sshive cred <set|get|delete> <name>")
	}
	action, name := args[0], args[1]

	// The credential store is keyed by connection name; require the profile
	// to exist so typos don't create orphaned secrets.
	store, err := manager.OpenStore(flagStore)
	if err != nil {
		return err
	}
	if store.ByName(name) == nil {
		return fmt.Errorf("connection %q not found", name)
	}

	switch action {
	case "set":
		secret, err := manager.PromptSecret(fmt.Sprintf("Password for %s", name))
		if err != nil {
			return err
		}
		if err := manager.CredSet(name, secret); err != nil {
			return err
		}
		fmt.Printf("stored password for %s in %s\n", name, manager.CredentialBackendLabel())
		return nil
	case "get":
		if err := manager.CredGet(name); err != nil {
			return err
		}
		fmt.Printf("password for %s is present in %s\n", name, manager.CredentialBackendLabel())
		return nil
	case "delete":
		if err := manager.CredDelete(name); err != nil {
			return err
		}
		fmt.Printf("deleted password for %s\n", name)
		return nil
	default:
		return fmt.Errorf("unknown cred action %q (expected set|get|delete)", action)
	}
}
