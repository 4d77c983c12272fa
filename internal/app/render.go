package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

const (
	shortIDLen = 8
	timeFormat = "2006-01-02 15:04"
)

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func renderHeader(user string, pending, completed int) string {
	return theme.HeaderStyle.Render(user) +
		fmt.Sprintf(" %d pending, %d completed", pending, completed)
}

func renderSectionTitle(status model.Status, n int) string {
	return theme.StatusStyle(status).Render(fmt.Sprintf("%s (%d)", status, n))
}

func renderTodoTable(items []model.TodoItem) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorderStyle).
		Headers("ID", "TITLE", "PRIORITY", "STATUS", "UPDATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			if row < 0 || row >= len(items) {
				return cell
			}
			switch col {
			case 2:
				return cell.Inherit(theme.PriorityStyle(items[row].Priority))
			case 3:
				return cell.Inherit(theme.StatusStyle(items[row].Status))
			}
			return cell
		})

	for _, it := range items {
		t.Row(
			shortID(it.ID),
			it.Title,
			it.Priority.String(),
			it.Status.String(),
			it.UpdatedAt.Local().Format(timeFormat),
		)
	}
	return t.Render()
}

func renderTodoDetail(item model.TodoItem) string {
	details := item.Details
	if details == "" {
		details = theme.HelpStyle.Render("(none)")
	}
	rows := [][2]string{
		{"ID", item.ID},
		{"Title", item.Title},
		{"Details", details},
		{"Priority", theme.PriorityStyle(item.Priority).Render(item.Priority.String())},
		{"Status", theme.StatusStyle(item.Status).Render(item.Status.String())},
		{"Owner", item.Owner},
		{"Created", item.CreatedAt.Local().Format(timeFormat)},
		{"Updated", item.UpdatedAt.Local().Format(timeFormat)},
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(theme.LabelStyle.Render(r[0]) + " " + r[1])
	}
	return theme.DetailPanelStyle.Render(b.String())
}
