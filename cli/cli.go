// Package cli is the line driven front end: one command per line on the
// input, one status line per command on the output.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chase3718/patchthru/patch"
)

// Navigator is the patch navigation the CLI drives.
type Navigator interface {
	Current() (patch.Selection, bool)
	Increment(delta int) (patch.Selection, bool)
	Reset() (patch.Selection, bool)
	HasPatches() bool
}

const (
	noPatches    = "**NO PATCHES**"
	firstPatch   = "**FIRST PATCH**"
	lastPatch    = "**LAST PATCH**"
	usage        = "commands: <enter>|n|+ next, p|b|- previous, +N|-N jump, r reset, q quit"
	unknownInput = "unknown command %q (%s)"
)

// Run reads commands from r until EOF or "q" and prints the outcome of each
// to w.
func Run(r io.Reader, w io.Writer, nav Navigator) error {
	if sel, ok := nav.Current(); ok {
		fmt.Fprintf(w, "#%d %s\n", sel.Number, sel.Patch.Name)
	} else {
		fmt.Fprintln(w, noPatches)
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd := strings.TrimSpace(sc.Text())
		if cmd == "q" || cmd == "quit" {
			return nil
		}
		if cmd == "?" || cmd == "h" || cmd == "help" {
			fmt.Fprintln(w, usage)
			continue
		}
		if !nav.HasPatches() {
			fmt.Fprintln(w, noPatches)
			continue
		}
		if cmd == "r" || cmd == "reset" {
			if sel, ok := nav.Reset(); ok {
				fmt.Fprintf(w, "#%d %s\n", sel.Number, sel.Patch.Name)
			}
			continue
		}
		delta, err := parseDelta(cmd)
		if err != nil {
			fmt.Fprintf(w, unknownInput+"\n", cmd, usage)
			continue
		}
		step(w, nav, delta)
	}
	return sc.Err()
}

func step(w io.Writer, nav Navigator, delta int) {
	sel, ok := nav.Increment(delta)
	switch {
	case !ok && delta < 0:
		fmt.Fprintln(w, firstPatch)
	case !ok:
		fmt.Fprintln(w, lastPatch)
	case delta < 0:
		fmt.Fprintf(w, "<<< #%d %s\n", sel.Number, sel.Patch.Name)
	default:
		fmt.Fprintf(w, "#%d %s\n", sel.Number, sel.Patch.Name)
	}
}

func parseDelta(cmd string) (int, error) {
	switch cmd {
	case "", "n", "+":
		return 1, nil
	case "p", "b", "-":
		return -1, nil
	}
	if strings.HasPrefix(cmd, "+") || strings.HasPrefix(cmd, "-") {
		return strconv.Atoi(cmd)
	}
	return 0, fmt.Errorf("unknown command %q", cmd)
}
