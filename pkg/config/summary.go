package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agrare/foreman-providers-ovirt/pkg/inventory"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

// ManagerSummary is the outcome of refreshing one manager.
type ManagerSummary struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	APIVersion string         `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	Targets    int            `json:"targets" yaml:"targets"`
	NotFound   int            `json:"not_found" yaml:"not_found"`
	Records    map[string]int `json:"records,omitempty" yaml:"records,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// RefreshSummary is the output contract of a refresh run.
type RefreshSummary struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	StartedAt time.Time        `json:"started_at" yaml:"started_at"`
	Duration  string           `json:"duration" yaml:"duration"`
	Managers  []ManagerSummary `json:"managers" yaml:"managers"`
}

// Validate checks the minimum contract of a summary.
func (s RefreshSummary) Validate() error {
	if strings.TrimSpace(s.RunID) == "" {
		return fmt.Errorf("refresh summary run_id is required")
	}
	for _, m := range s.Managers {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("refresh summary manager id is required")
		}
		if m.NotFound > m.Targets {
			return fmt.Errorf("refresh summary for %q: not_found exceeds targets", m.ID)
		}
	}
	return nil
}

// Failed reports whether any manager failed to refresh.
func (s RefreshSummary) Failed() bool {
	for _, m := range s.Managers {
		if m.Error != "" {
			return true
		}
	}
	return false
}

// Summarize condenses a refresh outcome. Record counts come from the first
// payload that was not emptied.
func Summarize(id, name string, res *inventory.Result, err error) ManagerSummary {
	out := ManagerSummary{ID: id, Name: name}
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = string(ovirt.KindOf(err))
		return out
	}
	if res == nil {
		return out
	}

	out.Targets = len(res.Entries)
	for _, e := range res.Entries {
		if e.Payload.NotFound() {
			out.NotFound++
			continue
		}
		if out.Records == nil {
			out.APIVersion = e.Payload.APIVersion
			out.Records = make(map[string]int, len(e.Payload.Slots))
			for kind, records := range e.Payload.Slots {
				out.Records[string(kind)] = len(records)
			}
		}
	}
	return out
}

// LoadRefreshSummary reads a summary from YAML or JSON.
func LoadRefreshSummary(path string) (RefreshSummary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("read refresh summary %s: %w", path, err)
	}

	var out RefreshSummary
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(content, &out)
	} else {
		err = yaml.Unmarshal(content, &out)
	}
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("parse refresh summary %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return RefreshSummary{}, err
	}
	return out, nil
}

// SaveRefreshSummary writes a summary to YAML or JSON based on file extension.
func SaveRefreshSummary(path string, summary RefreshSummary) error {
	if err := summary.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	var content []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		content, err = json.MarshalIndent(summary, "", "  ")
	} else {
		content, err = yaml.Marshal(summary)
	}
	if err != nil {
		return fmt.Errorf("marshal refresh summary %s: %w", path, err)
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write refresh summary %s: %w", path, err)
	}
	return nil
}
