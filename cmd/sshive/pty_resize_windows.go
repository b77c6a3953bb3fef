//go:build windows
// +build windows

package main

import "os"

// startPTYResizeWatcher is a no-op on Windows: SIGWINCH does not exist
// there, and referencing it anywhere in a Windows build fails compilation.
func startPTYResizeWatcher(_ *os.File) {}
