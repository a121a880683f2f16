package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/agrare/foreman-providers-ovirt/internal/metrics"
	"github.com/agrare/foreman-providers-ovirt/internal/utils"
	"github.com/agrare/foreman-providers-ovirt/pkg/config"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/agrare/foreman-providers-ovirt/pkg/provider"
)

// app carries what every command builds managers from.
type app struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	file    *config.ManagersFile
	store   *config.FileStore
	key     *[32]byte
	opener  ovirt.Opener
}

func loadApp() (*app, error) {
	if err := checkRequirements(managersFile); err != nil {
		return nil, err
	}
	key, err := passwordKey()
	if err != nil {
		return nil, err
	}
	f, err := config.LoadManagers(managersFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &userError{
				msg:  fmt.Sprintf("managers file %s not found", managersFile),
				hint: "ovirtprovider managers add",
			}
		}
		return nil, err
	}

	logger := getLogger()
	return &app{
		logger:  logger,
		metrics: metrics.New(),
		file:    f,
		store:   config.NewFileStore(managersFile),
		key:     key,
		opener:  ovirt.NewFactory(logger, key),
	}, nil
}

// passwordKey reads the encryption key from the configured environment variable.
// An unset variable means passwords are stored in plain text.
func passwordKey() (*[32]byte, error) {
	encoded := strings.TrimSpace(os.Getenv(keyEnv))
	if encoded == "" {
		return nil, nil
	}
	key, err := utils.ParseKey(encoded)
	if err != nil {
		return nil, &userError{
			msg:  fmt.Sprintf("invalid %s: %v", keyEnv, err),
			hint: "Generate one with: head -c 32 /dev/urandom | base64",
		}
	}
	return key, nil
}

func (a *app) newManager(e config.ManagerEntry) *provider.Manager {
	return provider.NewManager(e.Settings(), a.opener,
		provider.WithLogger(a.logger),
		provider.WithMetrics(a.metrics),
		provider.WithEndpointStore(a.store),
		provider.WithPasswordKey(a.key),
	)
}

func (a *app) manager(idOrName string) (*provider.Manager, error) {
	e, ok := a.file.Find(idOrName)
	if !ok {
		return nil, &userError{
			msg:  fmt.Sprintf("manager %q not found in %s", idOrName, managersFile),
			hint: "ovirtprovider managers list",
		}
	}
	return a.newManager(*e), nil
}

// managers returns the named managers, or all of them when names is empty.
func (a *app) managers(names []string) ([]*provider.Manager, error) {
	if len(names) == 0 {
		out := make([]*provider.Manager, 0, len(a.file.Managers))
		for _, e := range a.file.Managers {
			out = append(out, a.newManager(e))
		}
		return out, nil
	}
	out := make([]*provider.Manager, 0, len(names))
	for _, n := range names {
		m, err := a.manager(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
