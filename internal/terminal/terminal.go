// Package terminal probes the capabilities of the attached terminal. The
// portal surface, spinners, and colored status output all key off the
// answers here.
package terminal

import (
	"os"

	"golang.org/x/term"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Info holds terminal capability information.
type Info struct {
	IsTTY     bool
	NoColor   bool
	Width     int
	Height    int
	ForceFlag bool // set by --no-color
}

// Detect returns terminal information for the current environment.
func Detect() *Info {
	stdoutFD := int(os.Stdout.Fd())
	isTTY := term.IsTerminal(stdoutFD)

	info := &Info{
		IsTTY:   isTTY,
		NoColor: colorDisabled(),
		Width:   defaultWidth,
		Height:  defaultHeight,
	}

	if isTTY {
		if w, h, err := term.GetSize(stdoutFD); err == nil {
			info.Width, info.Height = w, h
		}
	}

	return info
}

// colorDisabled honors NO_COLOR (https://no-color.org/), the biomectl
// variant BIOME_NO_COLOR, and TERM=dumb terminals that cannot render
// escape sequences.
func colorDisabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	if _, ok := os.LookupEnv("BIOME_NO_COLOR"); ok {
		return true
	}

	return os.Getenv("TERM") == "dumb"
}

// ColorEnabled reports whether colored output should be used.
func (t *Info) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}

	return t.IsTTY && !t.NoColor
}

// InteractiveEnabled reports whether interactive surfaces are allowed.
func (t *Info) InteractiveEnabled() bool {
	return t.IsTTY
}

// SpinnersEnabled reports whether spinners should be used.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}
