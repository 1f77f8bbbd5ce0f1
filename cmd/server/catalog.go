package main

import (
	"fmt"

	"ezeatin-backend/internal/onboarding"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and print the question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, plan := range onboarding.Plans {
				questions, err := cat.QuestionsFor(plan)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (%d questions)\n", plan, len(questions))
				for i, q := range questions {
					fmt.Fprintf(out, "  %2d. %-22s %s\n", i+1, q.ID, q.Kind)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalog to validate (defaults to the built-in catalog)")
	return cmd
}
