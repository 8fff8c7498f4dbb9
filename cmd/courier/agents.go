package main

import (
	"fmt"

	"courier/internal/agents"

	"github.com/spf13/cobra"
)

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List available agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			registry := agents.NewRegistry(logger)
			if err := registry.LoadDirectory(cfg.General.AgentsDir); err != nil {
				return err
			}

			var rows [][]string
			for _, a := range registry.List() {
				rows = append(rows, []string{a.ID, a.Name, a.Description})
			}
			fmt.Println(renderTable([]string{"ID", "NAME", "DESCRIPTION"}, rows))
			return nil
		},
	}
}
