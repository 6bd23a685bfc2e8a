//go:build !windows
// +build !windows

package cmd

import (
	"os"
	"strconv"
	"syscall"
	"unsafe"
)

// getTerminalSize reports the terminal dimensions used by the TUI-mode
// probe. COLUMNS/LINES win when both are set so operators can override
// detection under multiplexers; otherwise the size comes from a
// TIOCGWINSZ ioctl on stdout. Returns 0,0 when neither source works,
// which the caller treats as "let tview decide".
func getTerminalSize() (int, int) {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if rows := os.Getenv("LINES"); rows != "" {
			if c, err := strconv.Atoi(cols); err == nil {
				if r, err := strconv.Atoi(rows); err == nil {
					return c, r
				}
			}
		}
	}

	type winsize struct {
		Row    uint16
		Col    uint16
		Xpixel uint16
		Ypixel uint16
	}

	// stdout rather than stdin: serve may have its stdin redirected
	// while still rendering to a real terminal
	ws := &winsize{}
	retCode, _, _ := syscall.Syscall(syscall.SYS_IOCTL,
		os.Stdout.Fd(),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(ws)))
	if int(retCode) == -1 {
		return 0, 0
	}

	return int(ws.Col), int(ws.Row)
}
