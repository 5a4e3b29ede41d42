// Package catalog holds the fixed, ordered set of department templates that
// every project is cloned from.
package catalog

import (
	"slices"

	"github.com/zulandar/devteam/internal/models"
)

// Model families.
const (
	FamilyLocal   = "local"
	FamilyCloud   = "cloud"
	FamilyUnknown = "unknown"
)

// Template is a read-only department definition.
type Template struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Glyph        models.Glyph `json:"glyph"`
	DefaultModel string       `json:"default_model"`
	Deliverables [2]string    `json:"deliverables"`
}

var templates = []Template{
	{
		ID:           "business-analysis",
		Name:         "Business Analysis",
		Description:  "Detailed requirements gathering and market analysis",
		Glyph:        models.GlyphBuilding,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Business Requirements Document", "Feasibility Analysis"},
	},
	{
		ID:           "research",
		Name:         "Research",
		Description:  "Market, technology and competitor research",
		Glyph:        models.GlyphSearch,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Market Research Report", "Competitive Analysis"},
	},
	{
		ID:           "ux-ui",
		Name:         "UX/UI Design",
		Description:  "User experience and interface design",
		Glyph:        models.GlyphPalette,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Wireframes", "Design System"},
	},
	{
		ID:           "architecture",
		Name:         "Architecture",
		Description:  "Technical architecture of the system",
		Glyph:        models.GlyphBuilding,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Architecture Decision Record", "System Diagram"},
	},
	{
		ID:           "development",
		Name:         "Development",
		Description:  "Implementation of code and features",
		Glyph:        models.GlyphCode,
		DefaultModel: "codellama",
		Deliverables: [2]string{"Source Code", "API Documentation"},
	},
	{
		ID:           "testing",
		Name:         "Testing",
		Description:  "Automated tests and quality validation",
		Glyph:        models.GlyphTestTube,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Test Plan", "Test Report"},
	},
	{
		ID:           "deployment",
		Name:         "Deployment",
		Description:  "Production configuration and deployment",
		Glyph:        models.GlyphRocket,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Deployment Pipeline", "Release Notes"},
	},
	{
		ID:           "support",
		Name:         "Support",
		Description:  "Documentation and technical support",
		Glyph:        models.GlyphHeadset,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"User Manual", "Support Runbook"},
	},
	{
		ID:           "security",
		Name:         "Security",
		Description:  "Security audit and hardening",
		Glyph:        models.GlyphShield,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Security Audit", "Threat Model"},
	},
	{
		ID:           "analytics",
		Name:         "Analytics",
		Description:  "Metrics and analytics implementation",
		Glyph:        models.GlyphChart,
		DefaultModel: "gemini-pro",
		Deliverables: [2]string{"Metrics Dashboard", "Tracking Plan"},
	},
}

// LocalModels lists the locally hosted models a department may be assigned.
var LocalModels = []string{"codellama", "deepseek-coder", "starcoder", "phi3", "llama2"}

// CloudModels lists the hosted models a department may be assigned.
var CloudModels = []string{"gemini-pro", "gemini-flash"}

// Len returns the number of catalog entries.
func Len() int { return len(templates) }

// Templates returns a copy of the catalog in display order.
func Templates() []Template {
	return slices.Clone(templates)
}

// IDs returns the department identifiers in catalog order.
func IDs() []string {
	ids := make([]string, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	return ids
}

// Lookup returns the template with the given ID.
func Lookup(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Index returns the catalog position of id, or -1.
func Index(id string) int {
	for i, t := range templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ModelFamily classifies a model name as local or cloud.
func ModelFamily(model string) string {
	if slices.Contains(LocalModels, model) {
		return FamilyLocal
	}
	if slices.Contains(CloudModels, model) {
		return FamilyCloud
	}
	return FamilyUnknown
}

// KnownModel reports whether model is in either family.
func KnownModel(model string) bool {
	return ModelFamily(model) != FamilyUnknown
}

// Instantiate clones the catalog into per-project department instances.
// Departments listed in enabled start pending; all others start disabled.
func Instantiate(enabled []string) []models.Department {
	out := make([]models.Department, len(templates))
	for i, t := range templates {
		on := slices.Contains(enabled, t.ID)
		status := models.DepartmentDisabled
		if on {
			status = models.DepartmentPending
		}
		out[i] = models.Department{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Glyph:       t.Glyph,
			Model:       t.DefaultModel,
			Status:      status,
			Artifacts:   []string{},
			IsEnabled:   on,
		}
	}
	return out
}
