package team

import (
	"fmt"

	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/project"
)

// SeedBudget is the budget of the seeded ERP project.
const SeedBudget = 50000

var seedClients = []client.CreateOpts{
	{
		Name:        "João Silva",
		Email:       "joao@example.com",
		Phone:       "(11) 99999-9999",
		Company:     "Tech Solutions Ltd",
		Description: "Technology solutions company",
	},
	{
		Name:        "Maria Santos",
		Email:       "maria@startup.com",
		Phone:       "(21) 88888-8888",
		Company:     "Innovative Startup",
		Description: "Startup focused on digital innovation",
	},
}

// Seed installs the initial snapshot: two clients and an ERP project for the
// first one with research in progress. Business analysis is still pending and
// nothing has been delivered yet.
func (s *Service) Seed() error {
	var first models.Client
	for i, opts := range seedClients {
		c, err := s.CreateClient(opts)
		if err != nil {
			return fmt.Errorf("team: seed client: %w", err)
		}
		if i == 0 {
			first = c
		}
	}

	budget := float64(SeedBudget)
	p, err := s.CreateProject(project.CreateOpts{
		ClientID:          first.ID,
		Name:              "ERP Management System",
		Description:       "Complete enterprise management system",
		Status:            models.ProjectInProgress,
		ActiveDepartments: []string{"business-analysis", "research", "development"},
		Budget:            &budget,
	})
	if err != nil {
		return fmt.Errorf("team: seed project: %w", err)
	}

	if _, err := s.SetDepartmentStatus(p.ID, "research", models.DepartmentInProgress); err != nil {
		return fmt.Errorf("team: seed research: %w", err)
	}
	s.logger.Info("seeded initial data", "clients", len(seedClients), "project", p.ID)
	return nil
}
