/*
Package config loads and validates the scraper configuration. The config
is read once at startup and passed down by value; no component reads
settings or credentials ad hoc.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/concallscraper/internal/types"
)

const (
	defaultAnnouncementsURL = "https://api.bseindia.com/BseIndiaAPI/api/AnnGetData/w"
	defaultPortalURL        = "https://www.bseindia.com/corporates/ann.aspx"
	defaultFileServerBase   = "https://www.bseindia.com/xml-data/corpfiling/AttachLive"
	defaultLookbackDays     = 7
	defaultSendDelaySecs    = 30
	defaultSMTPServer       = "smtp.gmail.com"
	defaultSMTPPort         = 587
	defaultAuthor           = "concallscraper"

	ledgerDirName  = "concallscraper"
	ledgerFileName = "delivered.json"
)

// FeedConfig holds the exchange endpoints and scan tuning.
type FeedConfig struct {
	AnnouncementsURL string `yaml:"announcements_url" validate:"required,url"`
	PortalURL        string `yaml:"portal_url" validate:"required,url"`
	FileServerBase   string `yaml:"file_server_base" validate:"required,url"`
	LookbackDays     int    `yaml:"lookback_days" validate:"min=0,max=365"`
	SendDelaySeconds int    `yaml:"send_delay_seconds" validate:"min=0"`
}

// SMTPConfig holds mail transport settings. User and Password may come
// from the environment instead of the file.
type SMTPConfig struct {
	Server   string `yaml:"server" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Config is the full runtime configuration.
type Config struct {
	Watchlist   []types.WatchlistEntry `yaml:"watchlist" validate:"required,min=1,dive"`
	Feed        FeedConfig             `yaml:"feed"`
	SMTP        SMTPConfig             `yaml:"smtp"`
	KindleEmail string                 `yaml:"kindle_email" validate:"omitempty,email"`
	LedgerPath  string                 `yaml:"ledger_path"`
	Author      string                 `yaml:"author"`
}

// MailEnabled reports whether enough SMTP settings are present to deliver.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Server != "" && c.SMTP.User != "" && c.SMTP.Password != "" && c.KindleEmail != ""
}

// Load reads the YAML config at path, applies defaults and environment
// overrides (SMTP_USER, SMTP_PASSWORD, KINDLE_EMAIL), and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.LedgerPath == "" {
		ledgerPath, err := defaultLedgerPath()
		if err != nil {
			return nil, err
		}
		cfg.LedgerPath = ledgerPath
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Feed: FeedConfig{
			AnnouncementsURL: defaultAnnouncementsURL,
			PortalURL:        defaultPortalURL,
			FileServerBase:   defaultFileServerBase,
			LookbackDays:     defaultLookbackDays,
			SendDelaySeconds: defaultSendDelaySecs,
		},
		SMTP: SMTPConfig{
			Server: defaultSMTPServer,
			Port:   defaultSMTPPort,
		},
		Author: defaultAuthor,
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.SMTP.User = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("KINDLE_EMAIL"); v != "" {
		cfg.KindleEmail = v
	}
}

func defaultLedgerPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(configDir, ledgerDirName, ledgerFileName), nil
}
