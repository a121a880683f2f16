package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/agrare/foreman-providers-ovirt/pkg/provider"
)

func newVerifyCmd() *cobra.Command {
	var authType string
	var opts provider.VerifyOptions

	cmd := &cobra.Command{
		Use:   "verify MANAGER",
		Short: "Verify the credentials of a manager",
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

			roles := []string{authType}
			if authType == "all" {
				roles = roles[:0]
				for _, r := range m.AuthenticationsToValidate() {
					roles = append(roles, string(r))
				}
			}

			for _, role := range roles {
				if err := m.VerifyCredentials(cmd.Context(), role, opts); err != nil {
					return fmt.Errorf("%s credentials of %s: %w", role, m.Name(), err)
				}
				fmt.Printf("  \033[32m✓\033[0m %s credentials of %s are valid\n", role, m.Name())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&authType, "auth-type", string(ovirt.AuthDefault), "Credentials to verify (default, metrics or all)")
	cmd.Flags().StringVar(&opts.Username, "username", "", "Override the configured username")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Override the configured password")
	cmd.Flags().StringVar(&opts.HostnameOverride, "hostname", "", "Override the history database host (metrics only)")
	cmd.Flags().StringVar(&opts.DatabaseOverride, "database", "", "Override the history database name (metrics only)")
	cmd.Flags().BoolVar(&opts.ForceLegacyVersion, "force-v3", false, "Verify with API version 3 only")
	return cmd
}
