package ui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/whisper786/chat/internal/room"
	"github.com/whisper786/chat/internal/utils"
)

const rosterNameWidth = 14

// RosterView renders the participants of s as a table. The local
// participant is marked "you"; others show whether a data link is open.
func RosterView(s room.State) string {
	if len(s.Roster) == 0 {
		return MutedStyle.Render("No participants")
	}

	rows := make([][]string, 0, len(s.Roster))
	for _, p := range s.Roster {
		icon := IconPeer
		if p.IsHost {
			icon = IconHost
		}

		var status string
		switch {
		case p.ID == s.SelfID:
			status = "you"
		case s.CallPartner != nil && s.CallPartner.ID == p.ID && s.CallState == room.CallConnected:
			status = "in call"
		case slices.Contains(s.Links, p.ID):
			status = "linked"
		default:
			status = "…"
		}

		rows = append(rows, []string{icon, utils.TruncateString(p.Name, rosterNameWidth), status})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("", "Name", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RoomBanner is the one-line header of the room screen.
func RoomBanner(s room.State) string {
	role := "guest"
	switch {
	case s.IsHost && s.SelfID == s.Room:
		role = "host"
	case s.IsHost:
		role = "co-host"
	}
	return fmt.Sprintf("%s %s  %s %s (%s)", IconRoom, s.Room, IconPeer, s.Name, role)
}
