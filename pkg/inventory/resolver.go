package inventory

import (
	"log/slog"
)

// ManagerTargets is the set of targets requested for one manager.
type ManagerTargets struct {
	ManagerID string
	Targets   []Target
}

// GroupByManager splits targets by owning manager. Managers appear in the
// order of their first target; targets keep their request order.
func GroupByManager(targets []Target) []ManagerTargets {
	index := make(map[string]int)
	var out []ManagerTargets
	for _, t := range targets {
		i, ok := index[t.ManagerID]
		if !ok {
			i = len(out)
			index[t.ManagerID] = i
			out = append(out, ManagerTargets{ManagerID: t.ManagerID})
		}
		out[i].Targets = append(out[i].Targets, t)
	}
	return out
}

// Resolve decides which targets of one manager are actually fetched.
//
// A whole-manager target supersedes every other target. With graph refresh
// enabled, all sub-entity targets are batched into a single group target.
// Order is first appearance and Resolve(Resolve(x)) == Resolve(x).
func Resolve(managerID string, targets []Target, graph bool, logger *slog.Logger) []Target {
	if logger == nil {
		logger = slog.Default()
	}

	var requested []Target
	for _, t := range targets {
		if t.ManagerID != managerID {
			logger.Warn("Ignoring refresh target of another manager",
				"manager", managerID,
				"target", t.String(),
				"target_manager", t.ManagerID,
			)
			continue
		}
		requested = append(requested, t)
	}
	requested = dedupe(requested)

	for _, t := range requested {
		if t.Kind == KindManager {
			if len(requested) > 1 {
				logger.Info("Defaulting to full refresh",
					"manager", managerID,
					"name", t.Name,
					"discarded", len(requested)-1,
				)
			}
			return []Target{t}
		}
	}

	if !graph {
		return requested
	}

	var managerLevel, subEntities []Target
	for _, t := range requested {
		switch t.Kind {
		case KindGroup:
			// Re-resolving a resolved set unpacks the group again.
			subEntities = append(subEntities, t.Children...)
		case KindHost, KindVmOrTemplate:
			subEntities = append(subEntities, t)
		default:
			managerLevel = append(managerLevel, t)
		}
	}

	subEntities = dedupe(subEntities)
	if len(subEntities) > 0 {
		managerLevel = append(managerLevel, GroupTarget(managerID, subEntities))
	}
	return managerLevel
}

// dedupe drops repeated targets, keeping the first occurrence.
func dedupe(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		k := t.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
