package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrare/foreman-providers-ovirt/internal/metrics"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// OpenFunc opens the inventory connection of a manager.
type OpenFunc func(ctx context.Context) (ovirt.Connection, error)

// Collector fetches raw inventory for resolved targets.
type Collector struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCollector creates a collector. Both arguments may be nil.
func NewCollector(logger *slog.Logger, m *metrics.Metrics) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger, metrics: m}
}

// Fetch opens one connection and fetches a payload for every target.
//
// Each target gets a full inventory fetch; the API is not queried per entity.
// A Host or VmOrTemplate target whose record is missing upstream gets a
// payload with every slot set to nil.
func (c *Collector) Fetch(ctx context.Context, managerID string, open OpenFunc, targets []Target) (*Result, error) {
	conn, err := open(ctx)
	if err != nil {
		return nil, ovirt.NewError(ovirt.KindInventoryUnavailable,
			"Unable to connect to the oVirt API of manager "+managerID+".", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			c.logger.Error("Error while disconnecting", "id", managerID, "error", cerr)
			c.metrics.RecordDisconnectError()
		}
	}()

	info, err := conn.ProductInfo(ctx)
	if err != nil {
		return nil, ovirt.NewError(ovirt.KindInventoryUnavailable,
			"Invalid oVirt server address for manager "+managerID+".", err)
	}
	apiVersion := info.FullVersion
	if apiVersion == "" {
		apiVersion = conn.Version().String()
	}

	result := &Result{ManagerID: managerID, Entries: make([]Entry, 0, len(targets))}
	for _, t := range targets {
		c.logger.Info("Filtering inventory", "id", managerID, "target", t.String())

		inv, err := conn.Inventory(ctx)
		if err != nil {
			return nil, ovirt.NewError(ovirt.KindInventoryUnavailable,
				fmt.Sprintf("Unable to fetch inventory for %s: %v", t, err), err)
		}

		payload := NewPayload(inv, apiVersion)
		notFound := false
		if t.Targeted() && !payload.Contains(t) {
			c.logger.Info("Refresh target not found upstream", "id", managerID, "target", t.String())
			payload.Clear()
			notFound = true
		}
		c.metrics.RecordTarget(string(t.Kind), notFound)

		result.Entries = append(result.Entries, Entry{Target: t, Payload: payload})
		c.logger.Debug("Filtering inventory complete", "id", managerID, "target", t.String())
	}

	return result, nil
}
