package provider

import (
	"context"
	"log/slog"
	"net"

	"github.com/agrare/foreman-providers-ovirt/configs"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// probeStep is one attempt of the version-fallback probe. A failure that
// is definitive ends the probe; any other failure moves to the next step.
type probeStep struct {
	version    ovirt.Version
	attempt    func(ctx context.Context) error
	definitive func(err error) bool
}

// Verifier checks credentials against an engine, newest API version first.
type Verifier struct {
	opener     ovirt.Opener
	logger     *slog.Logger
	resolver   utils.Resolver
	resolveIPs bool
}

// NewVerifier creates a verifier that resolves IP addresses through the
// system resolver when configured to.
func NewVerifier(opener ovirt.Opener, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		opener:     opener,
		logger:     logger,
		resolver:   net.DefaultResolver,
		resolveIPs: configs.Defaults.OVirt.ResolveIPAddresses,
	}
}

// WithResolver replaces the reverse-DNS resolver. A nil resolver disables
// IP address resolution.
func (v *Verifier) WithResolver(r utils.Resolver) *Verifier {
	v.resolver = r
	v.resolveIPs = r != nil
	return v
}

// Verify probes the engine with creds. legacyOnly skips the version 4 step.
// The returned error is always a classified *ovirt.Error.
func (v *Verifier) Verify(ctx context.Context, creds ovirt.Credentials, endpoint ovirt.Endpoint, legacyOnly bool) error {
	if v.resolveIPs {
		resolved := utils.ResolveIPToHostname(ctx, v.resolver, endpoint.Host)
		if resolved != endpoint.Host {
			v.logger.Info("IP address has been resolved to host name", "address", endpoint.Host, "hostname", resolved)
			endpoint.Host = resolved
		}
	}

	steps := v.steps(creds, endpoint)
	if legacyOnly {
		steps = steps[1:]
	}
	if err := v.run(ctx, steps); err != nil {
		return ovirt.HandleVerificationError(err, v.logger)
	}
	return nil
}

func (v *Verifier) steps(creds ovirt.Credentials, endpoint ovirt.Endpoint) []probeStep {
	return []probeStep{
		{
			version:    ovirt.V4,
			attempt:    func(ctx context.Context) error { return v.probe(ctx, ovirt.V4, creds, endpoint) },
			definitive: ovirt.IsSSOError,
		},
		{
			version:    ovirt.V3,
			attempt:    func(ctx context.Context) error { return v.probe(ctx, ovirt.V3, creds, endpoint) },
			definitive: func(error) bool { return true },
		},
	}
}

// run executes steps in order. It returns nil on the first success, the
// error of a definitive failure, or the error of the last step.
func (v *Verifier) run(ctx context.Context, steps []probeStep) error {
	var last error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.attempt(ctx)
		if err == nil {
			v.logger.Debug("Credentials verified", "version", s.version.String())
			return nil
		}
		if s.definitive(err) {
			return err
		}
		v.logger.Debug("API version not applicable, falling back", "version", s.version.String(), "error", err)
		last = err
	}
	return last
}

// probe opens a connection, runs the cheap test call and releases the
// connection whatever the outcome.
func (v *Verifier) probe(ctx context.Context, version ovirt.Version, creds ovirt.Credentials, endpoint ovirt.Endpoint) error {
	conn, err := v.opener.Open(version, endpoint, creds, ovirt.ServiceInventory)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			v.logger.Error("Error while disconnecting", "version", version.String(), "error", cerr)
		}
	}()
	return conn.Test(ctx)
}
