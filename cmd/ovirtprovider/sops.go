package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// checkRequirements verifies SOPS is available and the AGE key is accessible
// when path is SOPS encrypted. Plain managers files need nothing.
func checkRequirements(path string) error {
	if !strings.Contains(path, ".sops.") {
		return nil
	}

	if _, err := exec.LookPath("sops"); err != nil {
		return &userError{
			msg:  "'sops' not found in PATH",
			hint: "Install sops or use a plain managers.yaml",
		}
	}

	if _, err := os.Stat(".sops.yaml"); os.IsNotExist(err) {
		if _, exErr := os.Stat(".sops.yaml.example"); exErr == nil {
			return &userError{
				msg:  "'.sops.yaml' not found, run from project root or create it",
				hint: "cp .sops.yaml.example .sops.yaml",
			}
		}
		return fmt.Errorf("'.sops.yaml' not found in current directory, run from project root")
	}

	ageKeyFile := os.ExpandEnv("$HOME/.config/sops/age/keys.txt")
	if envKey := os.Getenv("SOPS_AGE_KEY_FILE"); envKey != "" {
		ageKeyFile = envKey
	}
	if _, err := os.Stat(ageKeyFile); os.IsNotExist(err) {
		return fmt.Errorf("AGE key not found at %s, set SOPS_AGE_KEY_FILE or create the key", ageKeyFile)
	}
	return nil
}
