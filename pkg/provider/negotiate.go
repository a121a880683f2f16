package provider

import (
	"context"
	"fmt"
	"slices"

	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// legacyRemovedMinor is the first 4.x engine release without API version 3.
const legacyRemovedMinor = 3

// SupportedVersions returns the API versions the engine speaks, ascending.
// The answer is memoized until InvalidateFeatures; failures are not.
// The returned slice is the caller's to modify.
func (m *Manager) SupportedVersions(ctx context.Context) ([]ovirt.Version, error) {
	m.featuresMu.Lock()
	defer m.featuresMu.Unlock()
	versions, err := m.supportedVersionsLocked(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(versions), nil
}

func (m *Manager) supportedVersionsLocked(ctx context.Context) ([]ovirt.Version, error) {
	if m.versions != nil {
		return m.versions, nil
	}

	info, err := m.probeProduct(ctx, ovirt.V4)
	if err == nil {
		versions := []ovirt.Version{ovirt.V4}
		if info.Major < 4 || (info.Major == 4 && info.Minor < legacyRemovedMinor) {
			versions = []ovirt.Version{ovirt.V3, ovirt.V4}
		}
		m.logger.Debug("Negotiated API versions", "engine", info.FullVersion, "versions", versions)
		m.versions = versions
		return versions, nil
	}
	m.logger.Debug("API version 4 probe failed", "error", err)

	if _, err3 := m.probeProduct(ctx, ovirt.V3); err3 != nil {
		return nil, fmt.Errorf("probe API versions of %q: %w", m.settings.Name, err3)
	}
	m.versions = []ovirt.Version{ovirt.V3}
	return m.versions, nil
}

// probeProduct opens a short-lived connection and reads the engine product info.
func (m *Manager) probeProduct(ctx context.Context, version ovirt.Version) (*ovirt.ProductInfo, error) {
	opts := ConnectOptions{
		Version:                    version,
		SkipSupportedAPIValidation: true,
		AuthRole:                   ovirt.AuthDefault,
		Service:                    ovirt.ServiceDefault,
	}
	var info *ovirt.ProductInfo
	err := m.WithConnection(ctx, opts, func(conn ovirt.Connection) error {
		var err error
		info, err = conn.ProductInfo(ctx)
		return err
	})
	return info, err
}

// SupportedFeatures returns the union of capabilities of every supported
// API version. Computed once per manager and memoized; callers get a copy.
func (m *Manager) SupportedFeatures(ctx context.Context) ([]ovirt.Capability, error) {
	m.featuresMu.Lock()
	defer m.featuresMu.Unlock()

	if !m.featuresLoaded {
		versions, err := m.supportedVersionsLocked(ctx)
		if err != nil {
			return nil, err
		}
		m.features = ovirt.UnionFeatures(versions)
		m.featuresLoaded = true
	}
	return slices.Clone(m.features), nil
}

// Supports reports whether the manager offers capability c. Negotiation
// failures count as "not supported".
func (m *Manager) Supports(ctx context.Context, c ovirt.Capability) bool {
	features, err := m.SupportedFeatures(ctx)
	if err != nil {
		m.logger.Warn("Cannot determine supported features", "error", err)
		return false
	}
	return slices.Contains(features, c)
}

// InvalidateFeatures drops the memoized versions and features.
func (m *Manager) InvalidateFeatures() {
	m.featuresMu.Lock()
	defer m.featuresMu.Unlock()
	m.versions = nil
	m.features = nil
	m.featuresLoaded = false
}
