package runtime

import (
	"os"
	"os/exec"
	"strings"

	"github.com/juju/errors"
)

// CommandFunc builds the command to run, replaced by a stub in tests.
type CommandFunc func(name string, args ...string) *exec.Cmd

func defaultCommand(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

type command struct {
	name string
	args []string
}

func (c *command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// asUser prefixes the command with sudo when a proxy user is set.
func asUser(proxyUser string, c *command) *command {
	if proxyUser == "" {
		return c
	}
	return &command{name: "sudo", args: append([]string{"-u", proxyUser, c.name}, c.args...)}
}

// buildScript renders a sh script which runs in its own directory
// after sourcing envFile.
func buildScript(envFile string, body string) string {
	sb := &strings.Builder{}
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("BASEDIR=$(cd `dirname $0`; pwd)\n")
	sb.WriteString("cd $BASEDIR\n")
	if envFile != "" {
		sb.WriteString(". " + envFile + "\n")
	}
	sb.WriteString("\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	return sb.String()
}

// writeScript writes content to path. When keepExisting is set and the
// file exists it is left as is, and written is false.
func writeScript(path, content string, keepExisting bool) (written bool, err error) {
	if keepExisting {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !os.IsNotExist(err) {
			return false, errors.Annotatef(err, "stat %s", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return false, errors.Annotatef(err, "write %s", path)
	}
	return true, nil
}
