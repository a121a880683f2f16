package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features MANAGER",
		Short: "Show the API versions and capabilities of a manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			m, err := a.manager(args[0])
			if err != nil {
				return err
			}

			versions, err := m.SupportedVersions(cmd.Context())
			if err != nil {
				return err
			}
			features, err := m.SupportedFeatures(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("\n\033[1m%s\033[0m\n", m.Name())
			fmt.Printf("  API versions: %v\n", versions)
			fmt.Printf("  API path:     %s\n", m.APIPath())
			if len(features) == 0 {
				fmt.Println("  Features:     none")
				return nil
			}
			fmt.Println("  Features:")
			for _, f := range features {
				fmt.Printf("    - %s\n", f)
			}
			return nil
		},
	}
}
