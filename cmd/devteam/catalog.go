package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zulandar/devteam/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	var showModels bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the department catalog",
		Long:  "Prints every department in lifecycle order with its default model and deliverables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-3s %-18s %-20s %-16s %s\n", "#", "ID", "NAME", "MODEL", "DELIVERABLES")
			for i, t := range catalog.Templates() {
				model := fmt.Sprintf("%s (%s)", t.DefaultModel, catalog.ModelFamily(t.DefaultModel))
				fmt.Fprintf(out, "%-3d %-18s %-20s %-16s %s\n",
					i+1, t.ID, t.Name, model, strings.Join(t.Deliverables[:], ", "))
			}
			if showModels {
				fmt.Fprintf(out, "\nModels:\n  %s: %s\n  %s: %s\n",
					catalog.FamilyLocal, strings.Join(catalog.LocalModels, ", "),
					catalog.FamilyCloud, strings.Join(catalog.CloudModels, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showModels, "models", false, "also list the available models per family")
	return cmd
}
