package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/zulandar/devteam/internal/models"
)

var statusColors = map[models.DepartmentStatus]lipgloss.Color{
	models.DepartmentPending:    lipgloss.Color("#AAAAAA"),
	models.DepartmentInProgress: lipgloss.Color("#5B8DEF"),
	models.DepartmentCompleted:  lipgloss.Color("#36A64F"),
	models.DepartmentDisabled:   lipgloss.Color("#555555"),
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressBar renders pct as a fixed-width bar like "[####------]".
func progressBar(pct, width int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func departmentPercent(d models.Department) int {
	switch {
	case d.CompletionPercentage != nil:
		return *d.CompletionPercentage
	case d.Status == models.DepartmentCompleted:
		return 100
	}
	return 0
}

// boardLines renders one unstyled row per department.
func boardLines(p models.Project) []string {
	lines := make([]string, 0, len(p.Departments))
	for i, d := range p.Departments {
		marker := " "
		if i == p.CurrentStep {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %-18s %-12s %s %3d%%  %d artifacts",
			marker, d.Name, d.Status, progressBar(departmentPercent(d), 10),
			departmentPercent(d), len(d.Artifacts)))
	}
	return lines
}

// renderBoard draws the project's department board. Styled output uses
// colors and a border; plain output is suitable for pipes and tests.
func renderBoard(p models.Project, stats models.Stats, styled bool) string {
	title := fmt.Sprintf("%s (%s) · %d%% · %d/%d completed",
		p.Name, p.Status, stats.Progress, stats.CompletedDepartments, stats.ActiveDepartments)
	lines := boardLines(p)

	if !styled {
		return title + "\n" + strings.Join(lines, "\n") + "\n"
	}

	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		Render(title)
	rows := make([]string, len(lines))
	for i, line := range lines {
		st := lipgloss.NewStyle().Foreground(statusColors[p.Departments[i].Status])
		if i == p.CurrentStep {
			st = st.Bold(true)
		}
		rows[i] = st.Render(line)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{head, ""}, rows...)...))
	return box + "\n"
}
