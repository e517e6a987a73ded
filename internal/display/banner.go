package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/regimelab/regimebatch/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	art := []string{
		" ____                _                   ____          _          _",
		"|  _ \\   ___   __ _ (_) _ __ ___    ___ | __ )   __ _ | |_   ___ | |__",
		"| |_) | / _ \\ / _` || || '_ ` _ \\  / _ \\|  _ \\  / _` || __| / __|| '_ \\",
		"|  _ < |  __/| (_| || || | | | | ||  __/| |_) || (_| || |_ | (__ | | | |",
		"|_| \\_\\ \\___| \\__, ||_||_| |_| |_| \\___||____/  \\__,_| \\__| \\___||_| |_|",
		"              |___/",
	}
	if term.Magenta != "" {
		fmt.Fprint(os.Stdout, term.Magenta)
	}
	fmt.Fprintln(os.Stdout, strings.Join(art, "\n"))
	if term.Magenta != "" {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
