// Package command defines the named commands a running timer accepts and
// serves them over a local socket.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Command is a single instruction for a session.
type Command string

const (
	Split         Command = "split"
	Start         Command = "start"
	Pause         Command = "pause"
	Reset         Command = "reset"
	SavePB        Command = "savepb"
	UndoLastSplit Command = "undolastsplit"
	LoadBackup    Command = "loadbackup"
	NextPage      Command = "nextpage"
	PrevPage      Command = "prevpage"
	ToggleHelp    Command = "togglehelp"
	ReloadAll     Command = "reloadall"
	ReloadRun     Command = "reloadrun"
	ReloadTheme   Command = "reloadtheme"
)

var (
	// ErrEmptyCommand is returned for blank input.
	ErrEmptyCommand = errors.New("empty command")
	// ErrUnknownCommand is returned for input that names no command.
	ErrUnknownCommand = errors.New("unknown command")
)

// All lists every command in help order.
var All = []Command{
	Split, Start, Pause, Reset, SavePB, UndoLastSplit, LoadBackup,
	NextPage, PrevPage, ToggleHelp, ReloadAll, ReloadRun, ReloadTheme,
}

// Target is the session surface commands act on.
type Target interface {
	Split()
	Start()
	Pause()
	Reset()
	SavePB() error
	UndoSplit()
	UndoPB()
	NextPage()
	PrevPage()
	ToggleHelp()
	ReloadAll()
	ReloadRun()
	ReloadTheme()
}

// Parse trims line and maps it to a command. Matching is exact and
// case-sensitive.
func Parse(line string) (Command, error) {
	name := strings.TrimSpace(line)
	if name == "" {
		return "", ErrEmptyCommand
	}
	for _, cmd := range All {
		if string(cmd) == name {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Dispatch applies cmd to target.
func Dispatch(target Target, cmd Command) error {
	switch cmd {
	case Split:
		target.Split()
	case Start:
		target.Start()
	case Pause:
		target.Pause()
	case Reset:
		target.Reset()
	case SavePB:
		return target.SavePB()
	case UndoLastSplit:
		target.UndoSplit()
	case LoadBackup:
		target.UndoPB()
	case NextPage:
		target.NextPage()
	case PrevPage:
		target.PrevPage()
	case ToggleHelp:
		target.ToggleHelp()
	case ReloadAll:
		target.ReloadAll()
	case ReloadRun:
		target.ReloadRun()
	case ReloadTheme:
		target.ReloadTheme()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}
	return nil
}

// Execute parses line and dispatches it. Failures are logged and returned;
// the session is never left half-updated by a bad line.
func Execute(target Target, line string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	cmd, err := Parse(line)
	if err != nil {
		logger.Warn("rejected command", "input", strings.TrimSpace(line), "error", err)
		return err
	}
	logger.Debug("received command", "command", string(cmd))
	if err := Dispatch(target, cmd); err != nil {
		logger.Error("command failed", "command", string(cmd), "error", err)
		return err
	}
	return nil
}
