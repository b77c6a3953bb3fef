//go:build windows
// +build windows

package main

// flushTTYInput is a no-op on Windows; the console input queue is managed
// by the console host and there is no /dev/tty analogue to drain.
func flushTTYInput() {}
