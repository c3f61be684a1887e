package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/config"
)

// sopsDecrypt decrypts a SOPS-encrypted file and returns the plaintext content.
func sopsDecrypt(path string) ([]byte, error) {
	out, err := exec.Command("sops", "-d", path).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("sops -d %s: %s", filepath.Base(path), string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("sops -d %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// isSopsFile reports whether path follows the *.sops.* naming convention.
func isSopsFile(path string) bool {
	return strings.Contains(filepath.Base(path), ".sops.")
}

// checkRequirements verifies SOPS and its AGE key are available for path.
// Plain YAML files need nothing.
func checkRequirements(path string) error {
	if !isSopsFile(path) {
		return nil
	}
	if _, err := exec.LookPath("sops"); err != nil {
		return &userError{
			msg:  "'sops' not found in PATH",
			hint: "install sops or pass a plain YAML file with --vcenter-config",
		}
	}

	ageKeyFile := os.ExpandEnv("$HOME/.config/sops/age/keys.txt")
	if envKey := os.Getenv("SOPS_AGE_KEY_FILE"); envKey != "" {
		ageKeyFile = envKey
	}
	if os.Getenv("SOPS_AGE_KEY") == "" {
		if _, err := os.Stat(ageKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("AGE key not found at %s, set SOPS_AGE_KEY_FILE or create the key", ageKeyFile)
		}
	}
	return nil
}

// loadVCenterFile reads the vCenter credentials file, decrypting it with
// sops when its name says it is encrypted.
func loadVCenterFile(path string) (*config.VCenterFile, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &userError{
				msg:  fmt.Sprintf("vCenter config %s not found", path),
				hint: "pass --vcenter-config or create configs/vcenter.sops.yaml",
			}
		}
		return nil, err
	}
	if err := checkRequirements(path); err != nil {
		return nil, err
	}

	var data []byte
	var err error
	if isSopsFile(path) {
		data, err = sopsDecrypt(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return config.ParseVCenterFile(data, filepath.Base(path))
}
