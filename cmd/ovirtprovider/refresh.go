package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agrare/foreman-providers-ovirt/configs"
	"github.com/agrare/foreman-providers-ovirt/pkg/config"
	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/provider"
)

var targetCtors = map[string]func(managerID, id, name string) inventory.Target{
	"host":     inventory.HostTarget,
	"vm":       inventory.VMTarget,
	"template": inventory.TemplateTarget,
}

// parseTarget reads "manager", "host:ID", "vm:ID" or "template:ID".
func parseTarget(managerID, raw string) (inventory.Target, error) {
	kind, id, _ := strings.Cut(strings.TrimSpace(raw), ":")
	kind = strings.ToLower(kind)
	if kind == "manager" || kind == "ems" {
		return inventory.ManagerTarget(managerID, ""), nil
	}
	ctor, ok := targetCtors[kind]
	if !ok {
		return inventory.Target{}, fmt.Errorf("target %q: unknown kind %q", raw, kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return inventory.Target{}, fmt.Errorf("target %q: id is required", raw)
	}
	return ctor(managerID, id, ""), nil
}

// targetsFor builds the refresh targets of one manager. No target flags means a
// full refresh.
func targetsFor(managerID string, targetFlags []string) ([]inventory.Target, error) {
	if len(targetFlags) == 0 {
		return []inventory.Target{inventory.ManagerTarget(managerID, "")}, nil
	}
	out := make([]inventory.Target, 0, len(targetFlags))
	for _, s := range targetFlags {
		t, err := parseTarget(managerID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// splitManager splits "NAME/vm:ID" into the manager name and the target.
// A slash after the first colon belongs to the ID.
func splitManager(raw string) (string, string) {
	slash := strings.Index(raw, "/")
	colon := strings.Index(raw, ":")
	if slash > 0 && (colon < 0 || slash < colon) {
		return strings.TrimSpace(raw[:slash]), raw[slash+1:]
	}
	return "", raw
}

// flagsFor keeps the target flags that apply to the manager with the given
// ID and name, stripped of their manager prefix.
func flagsFor(id, name string, targetFlags []string) []string {
	var out []string
	for _, raw := range targetFlags {
		owner, rest := splitManager(raw)
		if owner == "" || owner == id || strings.EqualFold(owner, name) {
			out = append(out, rest)
		}
	}
	return out
}

// refreshJob is the work of one manager in a refresh run.
type refreshJob struct {
	manager *provider.Manager
	targets []inventory.Target
	err     error
}

// planRefresh turns the target flags into one job per manager, in manager
// order. Managers that no flag applies to are left out; a flag that does not
// parse fails only its own manager.
func planRefresh(managers []*provider.Manager, targetFlags []string) []refreshJob {
	var all []inventory.Target
	failed := make(map[string]error)
	for _, m := range managers {
		own := flagsFor(m.ID(), m.Name(), targetFlags)
		if len(targetFlags) > 0 && len(own) == 0 {
			continue
		}
		targets, err := targetsFor(m.ID(), own)
		if err != nil {
			failed[m.ID()] = err
			continue
		}
		all = append(all, targets...)
	}

	grouped := make(map[string][]inventory.Target)
	for _, g := range inventory.GroupByManager(all) {
		grouped[g.ManagerID] = g.Targets
	}

	var jobs []refreshJob
	for _, m := range managers {
		if err, ok := failed[m.ID()]; ok {
			jobs = append(jobs, refreshJob{manager: m, err: err})
		} else if targets, ok := grouped[m.ID()]; ok {
			jobs = append(jobs, refreshJob{manager: m, targets: targets})
		}
	}
	return jobs
}

func newRefreshCmd() *cobra.Command {
	var targetFlags []string
	var summaryPath string
	var metricsPath string
	var parallel int

	cmd := &cobra.Command{
		Use:   "refresh [MANAGER...]",
		Short: "Refresh the inventory of managers (all when none is named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			managers, err := a.managers(args)
			if err != nil {
				return err
			}

			jobs := planRefresh(managers, targetFlags)
			if len(jobs) == 0 && len(targetFlags) > 0 {
				return &userError{msg: "no manager matches the --target flags", hint: "Prefix a target with a manager name, e.g. engine/vm:ID"}
			}

			summary := config.RefreshSummary{
				RunID:     uuid.NewString(),
				StartedAt: time.Now().UTC(),
				Managers:  make([]config.ManagerSummary, len(jobs)),
			}
			a.logger.Info("Refresh started", "run", summary.RunID, "managers", len(jobs))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(parallel, 1))
			for i, job := range jobs {
				g.Go(func() error {
					summary.Managers[i] = job.run(ctx)
					return nil
				})
			}
			_ = g.Wait()
			summary.Duration = time.Since(summary.StartedAt).Round(time.Millisecond).String()

			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if summaryPath != "" {
				if err := config.SaveRefreshSummary(summaryPath, summary); err != nil {
					return err
				}
				a.logger.Info("Summary written", "path", summaryPath)
			}
			if metricsPath != "" {
				if err := a.metrics.WriteTextfile(metricsPath); err != nil {
					return err
				}
			}

			printSummary(summary)
			if summary.Failed() {
				hint := "Rerun with --debug"
				if summaryPath != "" {
					hint = "See " + summaryPath + " or rerun with --debug"
				}
				return &userError{msg: "refresh failed for one or more managers", hint: hint}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&targetFlags, "target", nil, "Refresh only this target (manager, host:ID, vm:ID, template:ID), optionally prefixed with NAME/; repeatable")
	cmd.Flags().StringVar(&summaryPath, "summary", configs.Defaults.Output.RefreshSummaryPath, "Write refresh summary to YAML/JSON file (empty disables)")
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus metrics in textfile format (optional)")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Managers refreshed at the same time")
	return cmd
}

func (j refreshJob) run(ctx context.Context) config.ManagerSummary {
	m := j.manager
	if j.err != nil {
		return config.Summarize(m.ID(), m.Name(), nil, j.err)
	}
	res, err := m.Refresh(ctx, j.targets)
	return config.Summarize(m.ID(), m.Name(), res, err)
}

func printSummary(s config.RefreshSummary) {
	fmt.Println()
	fmt.Printf("\033[1mRefresh %s\033[0m  (%s)\n", s.RunID, s.Duration)
	fmt.Println(strings.Repeat("─", 50))
	for _, m := range s.Managers {
		if m.Error != "" {
			fmt.Printf("  \033[31m✗\033[0m %-20s %s\n", m.Name, m.Error)
			continue
		}
		fmt.Printf("  \033[32m✓\033[0m %-20s api=%s targets=%d not_found=%d vms=%d hosts=%d\n",
			m.Name, m.APIVersion, m.Targets, m.NotFound, m.Records["vm"], m.Records["host"])
	}
}
