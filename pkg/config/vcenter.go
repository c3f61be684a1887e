package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/vcenter"
)

// VCenterFile is the YAML structure of vcenter.sops.yaml (or a plain YAML copy).
type VCenterFile struct {
	VCenter struct {
		Host     string `yaml:"host"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Port     int    `yaml:"port"`
		Insecure bool   `yaml:"insecure"`
	} `yaml:"vcenter"`
	Notify struct {
		WebhookURL string            `yaml:"webhook_url"`
		Headers    map[string]string `yaml:"headers"`
	} `yaml:"notify"`
}

// ParseVCenterFile decodes and validates decrypted file content.
// name is only used in error messages.
func ParseVCenterFile(data []byte, name string) (*VCenterFile, error) {
	var cfg VCenterFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &cfg, nil
}

// Validate checks the fields required to open a session.
func (f *VCenterFile) Validate() error {
	v := f.VCenter
	if strings.TrimSpace(v.Host) == "" {
		return fmt.Errorf("vcenter.host is required")
	}
	if strings.TrimSpace(v.Username) == "" {
		return fmt.Errorf("vcenter.username is required")
	}
	if v.Password == "" {
		return fmt.Errorf("vcenter.password is required")
	}
	if v.Port < 0 || v.Port > 65535 {
		return fmt.Errorf("vcenter.port must be in range 0..65535")
	}
	if u := strings.TrimSpace(f.Notify.WebhookURL); u != "" &&
		!strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return fmt.Errorf("notify.webhook_url must be an http(s) URL")
	}
	return nil
}

// ClientConfig returns the session parameters for vcenter.NewClient.
func (f *VCenterFile) ClientConfig() *vcenter.Config {
	return &vcenter.Config{
		Host:     f.VCenter.Host,
		Username: f.VCenter.Username,
		Password: f.VCenter.Password,
		Port:     f.VCenter.Port,
		Insecure: f.VCenter.Insecure,
	}
}
