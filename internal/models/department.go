package models

// DepartmentStatus is the lifecycle state of a department instance.
type DepartmentStatus string

const (
	DepartmentPending    DepartmentStatus = "pending"
	DepartmentInProgress DepartmentStatus = "in-progress"
	DepartmentCompleted  DepartmentStatus = "completed"
	DepartmentDisabled   DepartmentStatus = "disabled"
)

// Valid reports whether s is one of the known department statuses.
func (s DepartmentStatus) Valid() bool {
	switch s {
	case DepartmentPending, DepartmentInProgress, DepartmentCompleted, DepartmentDisabled:
		return true
	}
	return false
}

// Glyph is a symbolic tag the view layer maps to an icon.
type Glyph string

const (
	GlyphBuilding Glyph = "building"
	GlyphSearch   Glyph = "search"
	GlyphPalette  Glyph = "palette"
	GlyphCode     Glyph = "code"
	GlyphTestTube Glyph = "test-tube"
	GlyphRocket   Glyph = "rocket"
	GlyphHeadset  Glyph = "headset"
	GlyphShield   Glyph = "shield"
	GlyphChart    Glyph = "chart"
)

// Department is a per-project department instance cloned from the catalog.
type Department struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	Glyph                Glyph            `json:"glyph"`
	Model                string           `json:"model"`
	Status               DepartmentStatus `json:"status"`
	Artifacts            []string         `json:"artifacts"`
	CompletionPercentage *int             `json:"completion_percentage,omitempty"`
	Tasks                []string         `json:"tasks,omitempty"`
	EstimatedTime        string           `json:"estimated_time,omitempty"`
	IsEnabled            bool             `json:"is_enabled"`
}

// Clone returns a deep copy of d.
func (d Department) Clone() Department {
	out := d
	out.Artifacts = append([]string{}, d.Artifacts...)
	if d.Tasks != nil {
		out.Tasks = append([]string{}, d.Tasks...)
	}
	if d.CompletionPercentage != nil {
		pct := *d.CompletionPercentage
		out.CompletionPercentage = &pct
	}
	return out
}

// DepartmentPatch holds a partial department configuration update.
type DepartmentPatch struct {
	Model         *string   `json:"model,omitempty"`
	Tasks         *[]string `json:"tasks,omitempty"`
	EstimatedTime *string   `json:"estimated_time,omitempty"`
}
