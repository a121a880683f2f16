package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoCreationRule is returned when .sops.yaml has no rule for the file.
var ErrNoCreationRule = errors.New("sops config has no matching creation rules")

// Replaced in tests.
var (
	sopsDecrypt = decryptWithSOPS
	sopsEncrypt = encryptWithSOPS
)

// decryptWithSOPS decrypts a SOPS-encrypted file and returns the plaintext content.
func decryptWithSOPS(path string) ([]byte, error) {
	out, err := exec.Command("sops", "-d", path).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("sops -d %s: %s", filepath.Base(path), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("sops -d %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// encryptWithSOPS encrypts plaintext YAML and writes it to path.
// The file must match a creation_rule in .sops.yaml.
func encryptWithSOPS(path string, plaintext []byte) error {
	cmd := exec.Command("sops",
		"-e",
		"--input-type", "yaml",
		"--output-type", "yaml",
		"--filename-override", path,
		"/dev/stdin",
	)
	cmd.Stdin = bytes.NewReader(plaintext)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if strings.Contains(msg, "no matching creation rules found") {
			return ErrNoCreationRule
		}
		return fmt.Errorf("sops -e (stdin): %s", msg)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
