package ui

import (
	"fmt"
	"time"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/whisper786/chat/internal/room"
	"github.com/whisper786/chat/internal/utils"
)

// SessionSummary is printed after the room screen closes.
type SessionSummary struct {
	Room         string
	Name         string
	Status       string
	Participants int
	Messages     int
	Duration     time.Duration
}

// NewSessionSummary derives the summary from the last observed state.
func NewSessionSummary(s room.State, duration time.Duration) SessionSummary {
	status := "Left"
	if s.LastError != nil {
		status = "Error: " + s.LastError.Error()
	} else if s.HostLost {
		status = "Host left"
	}

	var chats int
	for _, m := range s.Messages {
		if m.Kind == room.MessageChat {
			chats++
		}
	}

	return SessionSummary{
		Room:         s.Room,
		Name:         s.Name,
		Status:       status,
		Participants: len(s.Roster),
		Messages:     chats,
		Duration:     duration,
	}
}

func SessionSummaryView(summary SessionSummary) string {
	t := pretty.NewWriter()
	t.SetTitle(fmt.Sprintf("%s Session Summary", IconChat))
	t.AppendHeader(pretty.Row{"Metric", "Value"})
	t.AppendRows([]pretty.Row{
		{"Room", summary.Room},
		{"Name", summary.Name},
		{"Status", summary.Status},
		{"Participants", summary.Participants},
		{"Messages", summary.Messages},
		{"Duration", utils.FormatTimeDuration(summary.Duration)},
	})
	t.SetStyle(pretty.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetColumnConfigs([]pretty.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgCyan, text.Bold}},
	})
	return t.Render()
}

func RenderSessionSummary(summary SessionSummary) {
	fmt.Println(SessionSummaryView(summary))
}
