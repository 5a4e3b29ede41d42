package dashboard

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/team"
)

// glyphs maps department glyph tags to display characters.
var glyphs = map[models.Glyph]string{
	models.GlyphBuilding: "🏢",
	models.GlyphSearch:   "🔍",
	models.GlyphPalette:  "🎨",
	models.GlyphCode:     "💻",
	models.GlyphTestTube: "🧪",
	models.GlyphRocket:   "🚀",
	models.GlyphHeadset:  "🎧",
	models.GlyphShield:   "🛡️",
	models.GlyphChart:    "📊",
}

var templateFuncs = template.FuncMap{
	"glyph":       glyph,
	"statusLabel": statusLabel,
	"percent":     percent,
	"budget":      formatBudget,
	"ago":         timeAgo,
	"clock":       func(t time.Time) string { return t.Format("15:04") },
	"family":      catalog.ModelFamily,
	"join":        strings.Join,
}

func glyph(g models.Glyph) string {
	if s, ok := glyphs[g]; ok {
		return s
	}
	return "•"
}

// statusLabel renders a status value for display, e.g. "in-progress" -> "In progress".
func statusLabel(status any) string {
	s := strings.ReplaceAll(fmt.Sprint(status), "-", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func percent(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func formatBudget(b *float64) string {
	if b == nil {
		return "-"
	}
	return "$" + strconv.FormatFloat(*b, 'f', 2, 64)
}

// timeAgo renders how long ago t was, like "2h 15m ago".
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatDuration(time.Since(t)) + " ago"
}

// formatDuration formats a duration as a human-readable string like "2h 15m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		days := h / 24
		h = h % 24
		return fmt.Sprintf("%dd %dh", days, h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// ProjectRow holds a project with its resolved client for list display.
type ProjectRow struct {
	Project    models.Project
	ClientName string // empty when the client no longer exists
	Stats      models.Stats
}

// ClientRow holds a client with its project count.
type ClientRow struct {
	Client   models.Client
	Projects int
}

// ProjectDetail holds everything the team view renders.
type ProjectDetail struct {
	Project      models.Project
	Client       models.Client
	ClientFound  bool
	Stats        models.Stats
	Current      *models.Department
	CanStartNext bool
}

func projectRows(svc *team.Service, projects []models.Project) []ProjectRow {
	rows := make([]ProjectRow, 0, len(projects))
	for _, p := range projects {
		row := ProjectRow{Project: p}
		if c, err := svc.Client(p.ClientID); err == nil {
			row.ClientName = c.Name
		}
		if st, err := svc.Stats(p.ID); err == nil {
			row.Stats = st
		}
		rows = append(rows, row)
	}
	return rows
}

func clientRows(svc *team.Service) []ClientRow {
	clients := svc.Clients()
	rows := make([]ClientRow, len(clients))
	for i, c := range clients {
		rows[i] = ClientRow{Client: c, Projects: len(svc.ClientProjects(c.ID))}
	}
	return rows
}

func projectDetail(svc *team.Service, p models.Project) ProjectDetail {
	d := ProjectDetail{Project: p}
	if c, err := svc.Client(p.ClientID); err == nil {
		d.Client = c
		d.ClientFound = true
	}
	if st, err := svc.Stats(p.ID); err == nil {
		d.Stats = st
	}
	if p.CurrentStep >= 0 && p.CurrentStep < len(p.Departments) {
		cur := p.Departments[p.CurrentStep]
		d.Current = &cur
	}
	inProgress, pending := false, false
	for _, dept := range p.Departments {
		switch dept.Status {
		case models.DepartmentInProgress:
			inProgress = true
		case models.DepartmentPending:
			pending = true
		}
	}
	d.CanStartNext = pending && !inProgress
	return d
}

// parseBudget reads a budget form value. Empty means no budget; anything
// unparsable counts as zero.
func parseBudget(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return &v
}

// splitLines turns a textarea value into trimmed, non-empty lines.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
