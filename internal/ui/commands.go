package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whisper786/chat/internal/room"
)

type CommandKind int

const (
	CmdSay CommandKind = iota
	CmdCall
	CmdAnswer
	CmdReject
	CmdHangUp
	CmdKick
	CmdPromote
	CmdMic
	CmdCam
	CmdLeave
	CmdHelp
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing participant name")
	ErrNoSuchName      = errors.New("no participant with that name")
)

// Command is one parsed input line. Arg is the chat text for CmdSay and
// the participant name for commands that take one.
type Command struct {
	Kind CommandKind
	Arg  string
}

var commandNames = map[string]CommandKind{
	"call":    CmdCall,
	"answer":  CmdAnswer,
	"reject":  CmdReject,
	"hangup":  CmdHangUp,
	"kick":    CmdKick,
	"promote": CmdPromote,
	"mic":     CmdMic,
	"cam":     CmdCam,
	"leave":   CmdLeave,
	"quit":    CmdLeave,
	"help":    CmdHelp,
}

// HelpText lists the slash commands.
const HelpText = "/call <name>  /answer  /reject  /hangup  /kick <name>  /promote <name>  /mic  /cam  /leave"

// ParseCommand turns an input line into a Command. Lines not starting with
// "/" are chat; "//" escapes a leading slash.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSay, Arg: line}, nil
	}
	if strings.HasPrefix(line, "//") {
		return Command{Kind: CmdSay, Arg: line[1:]}, nil
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	kind, ok := commandNames[strings.ToLower(name)]
	if !ok {
		return Command{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
	}

	arg = strings.TrimSpace(arg)
	switch kind {
	case CmdCall, CmdKick, CmdPromote:
		if arg == "" {
			return Command{}, fmt.Errorf("/%s: %w", name, ErrMissingArgument)
		}
	}
	return Command{Kind: kind, Arg: arg}, nil
}

// ResolveName finds the id of the participant called name, ignoring case.
// The local participant is never a target.
func ResolveName(s room.State, name string) (string, error) {
	for _, p := range s.Roster {
		if p.ID != s.SelfID && strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSuchName, name)
}
