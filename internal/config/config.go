package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"crmcal/internal/auth"
)

// Environment variables that override values from the config file.
const (
	EnvAPIToken = "CRMCAL_API_TOKEN"
	EnvBaseURL  = "CRMCAL_BASE_URL"
	EnvPanelID  = "CRMCAL_PANEL_ID"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "America/Sao_Paulo"
	defaultBaseURL      = "https://api.helena.run/crm/v1"
	defaultPanelID      = "a04146a8-6cf1-4f88-8f97-d926292ec510"
	defaultPageSize     = 100
	defaultMaxPages     = 500
	defaultTimeout      = 30 * time.Second
	defaultDetailHost   = "https://crm.octanis.com.br"
	defaultConsultField = "data-da-consultoria"
	defaultPresentField = "data-da-apresenta-o"
)

// CRMConfig describes how to reach the CRM card listing endpoint.
type CRMConfig struct {
	// BaseURL is the API root, e.g. "https://api.helena.run/crm/v1".
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Token is sent as a bearer token. Prefer CRMCAL_API_TOKEN over storing it here.
	Token string `yaml:"token,omitempty" json:"-"`
	// PanelID selects which CRM panel is loaded.
	PanelID string `yaml:"panel_id" json:"panel_id"`
	// PageSize is requested per page; the API default is 100.
	PageSize int `yaml:"page_size" json:"page_size"`
	// MaxPages caps pagination. Zero means unlimited.
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// Timeout bounds each page request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// DetailHost is the CRM web UI host used for card links.
	DetailHost string `yaml:"detail_host" json:"detail_host"`
}

// FieldsConfig names the custom fields that carry dates.
type FieldsConfig struct {
	Consultation string `yaml:"consultation" json:"consultation"`
	Presentation string `yaml:"presentation" json:"presentation"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// PasswordHash is an argon2id hash produced by `crmcal hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for day boundaries and for
	// date values the CRM sends without an offset.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron reloads cards on a cron schedule (e.g. "*/30 * * * *").
	// Empty means cards are loaded once at startup and on POST /api/refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format" json:"log_format"`

	CRM    CRMConfig    `yaml:"crm" json:"crm"`
	Fields FieldsConfig `yaml:"fields" json:"fields"`

	// Responsibles maps CRM user ids to display names.
	Responsibles map[string]string `yaml:"responsibles" json:"responsibles"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health and /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    defaultListen,
		Timezone:  defaultTimezone,
		LogLevel:  "info",
		LogFormat: "text",
		CRM: CRMConfig{
			BaseURL:    defaultBaseURL,
			PanelID:    defaultPanelID,
			PageSize:   defaultPageSize,
			MaxPages:   defaultMaxPages,
			Timeout:    defaultTimeout,
			DetailHost: defaultDetailHost,
		},
		Fields: FieldsConfig{
			Consultation: defaultConsultField,
			Presentation: defaultPresentField,
		},
		Responsibles: map[string]string{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	c.RefreshCron = strings.TrimSpace(c.RefreshCron)

	if c.CRM.BaseURL == "" {
		c.CRM.BaseURL = defaultBaseURL
	}
	c.CRM.BaseURL = strings.TrimRight(c.CRM.BaseURL, "/")
	if c.CRM.PanelID == "" {
		c.CRM.PanelID = defaultPanelID
	}
	if c.CRM.PageSize <= 0 {
		c.CRM.PageSize = defaultPageSize
	}
	if c.CRM.MaxPages < 0 {
		c.CRM.MaxPages = 0
	}
	if c.CRM.Timeout <= 0 {
		c.CRM.Timeout = defaultTimeout
	}
	if c.CRM.DetailHost == "" {
		c.CRM.DetailHost = defaultDetailHost
	}
	c.CRM.DetailHost = strings.TrimRight(c.CRM.DetailHost, "/")

	if c.Fields.Consultation == "" {
		c.Fields.Consultation = defaultConsultField
	}
	if c.Fields.Presentation == "" {
		c.Fields.Presentation = defaultPresentField
	}
	if c.Responsibles == nil {
		c.Responsibles = map[string]string{}
	}
}

// ApplyEnv overrides CRM settings from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIToken)); v != "" {
		c.CRM.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.CRM.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv(EnvPanelID)); v != "" {
		c.CRM.PanelID = v
	}
}

// Validate checks values that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := uuid.Parse(c.CRM.PanelID); err != nil {
		errs = append(errs, fmt.Errorf("crm.panel_id %q is not a UUID: %w", c.CRM.PanelID, err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
		}
	}
	if c.Fields.Consultation == c.Fields.Presentation {
		errs = append(errs, errors.New("fields.consultation and fields.presentation must differ"))
	}
	if c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.PasswordHash == "" {
		errs = append(errs, errors.New("basic_auth.password_hash is required when basic_auth.username is set"))
	} else if c.BasicAuth != nil && c.BasicAuth.PasswordHash != "" {
		if err := auth.CheckHash(c.BasicAuth.PasswordHash); err != nil {
			errs = append(errs, fmt.Errorf("basic_auth.password_hash: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Location returns the configured timezone, or time.Local if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
//
// In both cases environment overrides are applied and the result validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created 0700, the YAML is written to a temp file in
// the same directory and renamed over path, final perms are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".crmcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
