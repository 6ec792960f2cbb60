package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Confirm asks a yes/no question on the terminal. An empty answer takes
// the default; unrecognized input asks again.
func Confirm(prompt string, defaultYes bool) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, prompt, defaultYes)
}

// ConfirmFrom is Confirm with explicit streams, for tests.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s %s ", prompt, Dim(hint))
		line, err := reader.ReadString('\n')
		if err != nil {
			return defaultYes
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return defaultYes
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Fprintln(out, "Please answer y or n.")
	}
}

// ReadLine reads one line of input, returning the default when the answer
// is empty.
func ReadLine(in io.Reader, out io.Writer, prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(out, "%s %s ", prompt, Dim("["+defaultValue+"]"))
	} else {
		fmt.Fprintf(out, "%s ", prompt)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return defaultValue
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer
	}
	return defaultValue
}
