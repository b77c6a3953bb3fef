package launcher

import "strings"

// ResolvedTerminal is a detected terminal emulator: its display name and the
// invocation prefix the full ssh command gets attached to.
type ResolvedTerminal struct {
	Name     string
	Template []string
}

// terminalCandidate pairs an emulator name with its invocation template.
// The first template element is the binary probed on PATH.
type terminalCandidate struct {
	name     string
	template []string
}

// terminalCandidates returns the ordered preference list for an OS family.
// Order matters: the first resolvable candidate wins.
func terminalCandidates(goos string) []terminalCandidate {
	switch goos {
	case "darwin":
		return []terminalCandidate{
			{"iTerm", []string{"open", "-a", "iTerm"}},
			{"Terminal", []string{"open", "-a", "Terminal"}},
			{"alacritty", []string{"alacritty", "-e"}},
		}
	case "windows":
		return []terminalCandidate{
			{"wt", []string{"wt.exe"}},
			{"cmd", []string{"cmd", "/c", "start"}},
		}
	default:
		return []terminalCandidate{
			{"konsole", []string{"konsole", "-e"}},
			{"gnome-terminal", []string{"gnome-terminal", "--"}},
			{"xfce4-terminal", []string{"xfce4-terminal", "-e"}},
			{"alacritty", []string{"alacritty", "-e"}},
			{"kitty", []string{"kitty"}},
			{"tilix", []string{"tilix", "-e"}},
			{"terminator", []string{"terminator", "-e"}},
			{"xterm", []string{"xterm", "-e"}},
		}
	}
}

// DetectTerminal scans the platform preference list and returns the first
// candidate whose launcher binary resolves on PATH. If the Launcher pins a
// terminal by name, that candidate is tried first; an unavailable pin falls
// back to the normal scan. When nothing resolves the xterm template is
// returned regardless of platform.
//
// Detection is a pure query and is intentionally uncached: terminal
// availability can change between launches, so every call re-probes.
func (l *Launcher) DetectTerminal() ResolvedTerminal {
	cands := terminalCandidates(l.goos)

	if pin := strings.TrimSpace(l.Terminal); pin != "" {
		for _, c := range cands {
			if strings.EqualFold(c.name, pin) {
				if _, err := l.lookPath(c.template[0]); err == nil {
					return ResolvedTerminal{Name: c.name, Template: append([]string(nil), c.template...)}
				}
			}
		}
	}

	for _, c := range cands {
		if _, err := l.lookPath(c.template[0]); err == nil {
			return ResolvedTerminal{Name: c.name, Template: append([]string(nil), c.template...)}
		}
	}

	return ResolvedTerminal{Name: "xterm", Template: []string{"xterm", "-e"}}
}

// KnownTerminalNames lists the emulator names the current platform list
// recognizes, for validating a configured terminal override.
func (l *Launcher) KnownTerminalNames() []string {
	cands := terminalCandidates(l.goos)
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.name)
	}
	return names
}
