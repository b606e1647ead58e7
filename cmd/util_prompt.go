package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/ssh/terminal"
)

type prompter interface {
	Prompt(label string, sensitive bool) (string, error)
}

// terminalPrompter prompts on stderr and reads stdin
type terminalPrompter struct{}

func (terminalPrompter) Prompt(label string, sensitive bool) (string, error) {
	return prompt(label, sensitive)
}

var stdin = bufio.NewReader(os.Stdin)

func prompt(prompt string, sensitive bool) (string, error) {
	return promptWithOutput(prompt, sensitive, os.Stderr)
}

func promptWithOutput(prompt string, sensitive bool, output *os.File) (string, error) {
	fmt.Fprintf(output, "%s: ", prompt)
	defer fmt.Fprintf(output, "\n")

	if sensitive {
		var input []byte
		input, err := terminal.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(input)), nil
	}
	value, err := stdin.ReadString('\n')
	if err != nil && !(err == io.EOF && value != "") {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func confirm(p prompter, question string) (bool, error) {
	answer, err := p.Prompt(question+" [y/N]", false)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
