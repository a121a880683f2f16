package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agrare/foreman-providers-ovirt/internal/metrics"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/internal/wizard"
	"github.com/agrare/foreman-providers-ovirt/pkg/config"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/agrare/foreman-providers-ovirt/pkg/provider"
)

func newManagersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "managers",
		Short: "List, add and remove configured managers",
	}
	cmd.AddCommand(newManagersListCmd(), newManagersAddCmd(), newManagersRemoveCmd())
	return cmd
}

func newManagersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured managers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if len(a.file.Managers) == 0 {
				fmt.Println("\n  No managers configured")
				fmt.Println("  Run: ovirtprovider managers add")
				return nil
			}
			fmt.Printf("\n\033[1m%s\033[0m\n%s\n", managersFile, strings.Repeat("─", 50))
			for _, e := range a.file.Managers {
				addr := e.Hostname
				if e.IPAddress != "" {
					addr = e.IPAddress
				}
				roles := make([]string, 0, len(e.Credentials))
				for _, r := range ovirt.SupportedAuthRoles() {
					if _, ok := e.Credentials[string(r)]; ok {
						roles = append(roles, string(r))
					}
				}
				fmt.Printf("  %-20s %-36s %-30s %s\n", e.Name, e.ID, addr, strings.Join(roles, ","))
			}
			return nil
		},
	}
}

func newManagersAddCmd() *cobra.Command {
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a manager interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return &userError{
					msg:  "managers add needs an interactive terminal",
					hint: "Edit " + managersFile + " directly instead",
				}
			}
			if err := checkRequirements(managersFile); err != nil {
				return err
			}
			key, err := passwordKey()
			if err != nil {
				return err
			}

			f, err := config.LoadManagers(managersFile)
			if errors.Is(err, fs.ErrNotExist) {
				f, err = &config.ManagersFile{}, nil
			}
			if err != nil {
				return err
			}

			logger := getLogger()
			var entry config.ManagerEntry
			steps := []wizard.Step{
				{Name: "Manager details", Run: func(context.Context) error {
					e, err := askManager(key)
					if err != nil {
						return err
					}
					if e.ID == "" {
						e.ID = config.StableID(e.Name)
					}
					entry = e
					return entry.Validate()
				}},
			}
			if !skipVerify {
				steps = append(steps, wizard.Step{Name: "Verify credentials", Run: func(ctx context.Context) error {
					return verifyEntry(ctx, entry, key, logger)
				}})
			}
			steps = append(steps, wizard.Step{Name: "Save managers file", Run: func(context.Context) error {
				if existing, ok := f.Find(entry.Name); ok {
					*existing = entry
				} else {
					f.Managers = append(f.Managers, entry)
				}
				return config.SaveManagers(managersFile, f)
			}})

			if err := wizard.RunSteps(cmd.Context(), steps, wizard.Progress{
				OnStart: func(i, total int, name string) {
					fmt.Printf("\n\033[1m[%d/%d] %s\033[0m\n", i, total, name)
				},
			}); err != nil {
				return err
			}
			fmt.Printf("\n\033[32m✓ Saved: %s\033[0m\n", managersFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Save without verifying credentials")
	return cmd
}

// verifyEntry checks every credential pair of entry before it is saved.
func verifyEntry(ctx context.Context, entry config.ManagerEntry, key *[32]byte, logger *slog.Logger) error {
	m := provider.NewManager(entry.Settings(), ovirt.NewFactory(logger, key),
		provider.WithLogger(logger),
		provider.WithMetrics(metrics.New()),
		provider.WithPasswordKey(key),
	)
	for _, role := range m.AuthenticationsToValidate() {
		if err := m.VerifyCredentials(ctx, string(role), provider.VerifyOptions{}); err != nil {
			return fmt.Errorf("%s credentials: %w", role, err)
		}
		logger.Info("Credentials verified", "role", string(role))
	}
	return nil
}

// askManager prompts for a manager entry. Passwords are sealed when a key is set.
func askManager(key *[32]byte) (config.ManagerEntry, error) {
	var answers struct {
		Name      string `survey:"name"`
		Hostname  string `survey:"hostname"`
		Port      string `survey:"port"`
		VerifySSL bool   `survey:"verifyssl"`
		Username  string `survey:"username"`
		Password  string `survey:"password"`
	}
	qs := []*survey.Question{
		{Name: "name", Prompt: &survey.Input{Message: "Name:"}, Validate: survey.Required},
		{Name: "hostname", Prompt: &survey.Input{Message: "Hostname or IP:"}, Validate: survey.Required},
		{Name: "port", Prompt: &survey.Input{Message: "Port:", Default: "443"}, Validate: func(v any) error {
			_, err := utils.ParsePort(fmt.Sprint(v))
			return err
		}},
		{Name: "verifyssl", Prompt: &survey.Confirm{Message: "Verify TLS certificate?", Default: true}},
		{Name: "username", Prompt: &survey.Input{Message: "Username:", Default: "admin@internal"}, Validate: survey.Required},
		{Name: "password", Prompt: &survey.Password{Message: "Password:"}, Validate: survey.Required},
	}
	if err := survey.Ask(qs, &answers); err != nil {
		return config.ManagerEntry{}, err
	}

	entry := config.ManagerEntry{
		Name:      strings.TrimSpace(answers.Name),
		Port:      config.Port(strings.TrimSpace(answers.Port)),
		VerifySSL: answers.VerifySSL,
	}
	if utils.IsIPAddress(answers.Hostname) {
		entry.IPAddress = strings.TrimSpace(answers.Hostname)
	} else {
		entry.Hostname = strings.TrimSpace(answers.Hostname)
	}

	password, err := sealPassword(answers.Password, key)
	if err != nil {
		return config.ManagerEntry{}, err
	}
	entry.Credentials = map[string]config.CredentialEntry{
		string(ovirt.AuthDefault): {Username: answers.Username, Password: password},
	}

	var withMetrics bool
	if err := survey.AskOne(&survey.Confirm{Message: "Add history database (metrics) credentials?"}, &withMetrics); err != nil {
		return config.ManagerEntry{}, err
	}
	if !withMetrics {
		return entry, nil
	}

	var metricsAnswers struct {
		Hostname string `survey:"hostname"`
		Username string `survey:"username"`
		Password string `survey:"password"`
	}
	mqs := []*survey.Question{
		{Name: "hostname", Prompt: &survey.Input{Message: "History database host (empty = engine host):"}},
		{Name: "username", Prompt: &survey.Input{Message: "Username:", Default: "ovirt_engine_history"}, Validate: survey.Required},
		{Name: "password", Prompt: &survey.Password{Message: "Password:"}, Validate: survey.Required},
	}
	if err := survey.Ask(mqs, &metricsAnswers); err != nil {
		return config.ManagerEntry{}, err
	}
	password, err = sealPassword(metricsAnswers.Password, key)
	if err != nil {
		return config.ManagerEntry{}, err
	}
	entry.Metrics.Hostname = strings.TrimSpace(metricsAnswers.Hostname)
	entry.Credentials[string(ovirt.AuthMetrics)] = config.CredentialEntry{Username: metricsAnswers.Username, Password: password}
	return entry, nil
}

func sealPassword(plain string, key *[32]byte) (string, error) {
	if key == nil {
		return plain, nil
	}
	return utils.EncryptPassword(plain, key)
}

func newManagersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove MANAGER",
		Short: "Remove a manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRequirements(managersFile); err != nil {
				return err
			}
			f, err := config.LoadManagers(managersFile)
			if err != nil {
				return err
			}
			before := len(f.Managers)
			f.Managers = slices.DeleteFunc(f.Managers, func(e config.ManagerEntry) bool {
				return e.ID == args[0] || e.Name == args[0]
			})
			if len(f.Managers) == before {
				return &userError{msg: fmt.Sprintf("manager %q not found", args[0]), hint: "ovirtprovider managers list"}
			}
			if err := config.SaveManagers(managersFile, f); err != nil {
				return err
			}
			fmt.Printf("\n\033[32m✓ Removed: %s\033[0m\n", args[0])
			return nil
		},
	}
}
