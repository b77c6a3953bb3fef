package launcher

import (
	"errors"
	"strconv"
	"strings"

	"sshive/pkg/manager"
)

// Command construction: password-helper rewriting, terminal-specific
// wrapping, and spawn-environment sanitation.
//
// The base ssh argv comes from Connection.SSHCommand; everything here layers
// platform and emulator conventions on top of it without touching the
// connection record.

// shellLaunchingTerminals are the emulators that expect a shell command after
// their template. For these the ssh command is wrapped in `bash -c` so a
// failed or closed connection pauses on a keypress instead of the window
// vanishing with the error.
var shellLaunchingTerminals = map[string]bool{
	"konsole":        true,
	"gnome-terminal": true,
	"xfce4-terminal": true,
	"alacritty":      true,
	"tilix":          true,
	"terminator":     true,
	"xterm":          true,
}

// applyPassword rewrites argv and env for password authentication.
//
// Non-Windows: the command is prefixed with `sshpass -e` and the secret is
// injected via the SSHPASS environment variable, never as an argument, so it
// cannot leak through process listings.
//
// Windows: OpenSSH has no sshpass equivalent, so the whole command is
// replaced by a PuTTY-link invocation whose flag set differs from ssh's
// (-pw, -P instead of -p).
func (l *Launcher) applyPassword(conn *manager.Connection, argv, env []string) ([]string, []string, error) {
	if conn.Password == "" {
		return argv, env, nil
	}

	if l.goos != "windows" {
		sshpass, err := l.lookPath("sshpass")
		if err != nil {
			return nil, nil, errors.New("password authentication requires 'sshpass' to be installed")
		}
		out := append([]string{sshpass, "-e"}, argv...)
		env = setEnvVar(env, "SSHPASS", conn.Password)
		return out, env, nil
	}

	helper, err := l.puttyLinkHelper()
	if err != nil {
		return nil, nil, err
	}
	out := []string{helper, "-pw", conn.Password}
	if conn.KeyPath != "" {
		out = append(out, "-i", manager.ExpandPath(conn.KeyPath))
	}
	if p := conn.EffectivePort(); p != 22 {
		out = append(out, "-P", strconv.Itoa(p))
	}
	out = append(out, conn.Destination())
	return out, env, nil
}

// puttyLinkHelper resolves plink.exe or klink.exe on PATH.
func (l *Launcher) puttyLinkHelper() (string, error) {
	if p, err := l.lookPath("plink.exe"); err == nil {
		return p, nil
	}
	if p, err := l.lookPath("klink.exe"); err == nil {
		return p, nil
	}
	return "", errors.New("password authentication on Windows requires 'PuTTY' (plink.exe) or 'KiTTY' (klink.exe) in your PATH")
}

// buildFullCommand attaches the ssh argv to the resolved terminal's template
// using that emulator's convention.
func buildFullCommand(goos string, term ResolvedTerminal, argv []string) []string {
	switch {
	case shellLaunchingTerminals[term.Name] && goos != "windows":
		// Wrap in bash so the window stays open if the connection dies.
		wrapped := shellJoin(argv) +
			" || { echo; echo '----------------------------------------'; echo 'Connection failed or closed.'; read -p 'Press Enter to close...'; }"
		return append(append([]string{}, term.Template...), "bash", "-c", wrapped)

	case term.Name == "kitty":
		// kitty takes the command argv directly.
		return append(append([]string{}, term.Template...), argv...)

	case term.Name == "wt":
		return append(append([]string{}, term.Template...), argv...)

	case term.Name == "iTerm" || term.Name == "Terminal":
		// `open -a <App>` accepts a script string, not argv.
		return append(append([]string{}, term.Template...), shellJoin(argv))

	default:
		// Generic fallback: template + argv, unwrapped.
		return append(append([]string{}, term.Template...), argv...)
	}
}

// replaceKeyArg swaps the `-i <old>` value in argv for the converted key
// path. argv is returned modified in place shape-wise; only the key value
// changes.
func replaceKeyArg(argv []string, old, converted string) []string {
	for i := 0; i+1 < len(argv); i++ {
		if argv[i] == "-i" && argv[i+1] == old {
			argv[i+1] = converted
			break
		}
	}
	return argv
}

// shellJoin renders argv as a single sh command line, single-quoting any
// argument that needs it.
func shellJoin(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, a := range argv {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// shellQuote escapes one argument for sh, using the classic single-quote
// strategy. Example: /tmp/foo'bar -> '/tmp/foo'"'"'bar'
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&|;<>(){}*?#~`!") {
		return s
	}
	if strings.IndexByte(s, '\'') < 0 {
		return "'" + s + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// bundledRuntimeVars are environment variables a relocated/bundled build may
// have pointed at its private runtime, which breaks independently installed
// terminal emulators (e.g. Konsole picking up the wrong Qt).
var bundledRuntimeVars = []string{
	"LD_LIBRARY_PATH",
	"DYLD_LIBRARY_PATH",
	"PYTHONPATH",
	"PYTHONHOME",
	"QT_PLUGIN_PATH",
}

// sanitizeSpawnEnv restores runtime variables from their _ORIG-suffixed
// copies before spawning a terminal. A variable with a saved original gets
// that value back; when SSHIVE_BUNDLED marks a packaged build, altered
// variables without a saved original are stripped entirely.
func sanitizeSpawnEnv(env []string) []string {
	_, bundled := lookupEnvVar(env, "SSHIVE_BUNDLED")
	for _, name := range bundledRuntimeVars {
		if orig, ok := lookupEnvVar(env, name+"_ORIG"); ok {
			env = setEnvVar(env, name, orig)
			continue
		}
		if bundled {
			env = removeEnvVar(env, name)
		}
	}
	return env
}

// setEnvVar returns env with name set to value, replacing any existing entry.
func setEnvVar(env []string, name, value string) []string {
	prefix := name + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+value)
}

// lookupEnvVar finds name in an environment slice.
func lookupEnvVar(env []string, name string) (string, bool) {
	prefix := name + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// removeEnvVar returns env without any entry for name.
func removeEnvVar(env []string, name string) []string {
	prefix := name + "="
	out := env[:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}
