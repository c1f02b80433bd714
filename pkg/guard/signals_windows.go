//go:build windows

package guard

import (
	"os"
	"syscall"
)

// Windows only delivers os.Interrupt (Ctrl+C, Ctrl+Break, console close);
// TERM is accepted so configuration stays portable.
var signalTable = map[string]os.Signal{
	"INT":  os.Interrupt,
	"TERM": syscall.SIGTERM,
}
