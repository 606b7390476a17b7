package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
)

type BotConfig struct {
	Storage  StorageConfig  `yaml:"storage"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Finder   FinderConfig   `yaml:"finder"`
	Telegram TelegramConfig `yaml:"telegram"`
	HTTP     HTTPConfig     `yaml:"http"`
	Events   EventsConfig   `yaml:"events"`
}

type StorageConfig struct {
	MachinesCSV string `yaml:"machines_csv"`
	JournalPath string `yaml:"journal_path"`
}

type GeocoderConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FinderConfig sizes the result lists. Alternatives is a pointer so an
// explicit 0 turns the alternatives section off instead of taking the default.
type FinderConfig struct {
	Results           int    `yaml:"results"`
	Alternatives      *int   `yaml:"alternatives"`
	DirectionsBaseURL string `yaml:"directions_base_url"`
}

// AlternativeCount returns the configured number of alternatives.
func (f FinderConfig) AlternativeCount() int {
	if f.Alternatives == nil {
		return DefaultAlternatives
	}
	return *f.Alternatives
}

type TelegramConfig struct {
	PollTimeout int  `yaml:"poll_timeout"`
	Debug       bool `yaml:"debug"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

const (
	DefaultMachinesCSV       = "data.csv"
	DefaultJournalPath       = "rvmbot.db"
	DefaultGeocoderURL       = "https://www.onemap.gov.sg/api/common/elastic/search"
	DefaultGeocoderTimeout   = 10 * time.Second
	DefaultResults           = 3
	DefaultAlternatives      = 2
	DefaultDirectionsBaseURL = "https://www.google.com/maps/dir/?api=1&destination="
	DefaultPollTimeout       = 60
	DefaultEventsSubject     = "rvm.status"
)

// Default returns a config with every field set to its default.
func Default() *BotConfig {
	cfg := &BotConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *BotConfig) ApplyDefaults() {
	if c.Storage.MachinesCSV == "" {
		c.Storage.MachinesCSV = DefaultMachinesCSV
	}
	if c.Storage.JournalPath == "" {
		c.Storage.JournalPath = DefaultJournalPath
	}
	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = DefaultGeocoderURL
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = DefaultGeocoderTimeout
	}
	if c.Finder.Results == 0 {
		c.Finder.Results = DefaultResults
	}
	if c.Finder.Alternatives == nil {
		n := DefaultAlternatives
		c.Finder.Alternatives = &n
	}
	if c.Finder.DirectionsBaseURL == "" {
		c.Finder.DirectionsBaseURL = DefaultDirectionsBaseURL
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = DefaultPollTimeout
	}
	if c.Events.Subject == "" {
		c.Events.Subject = DefaultEventsSubject
	}
}

func (c *BotConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Storage.MachinesCSV) == "" {
		return fmt.Errorf("config validation failed: storage.machines_csv is empty")
	}
	if err := validateHTTPURL("geocoder.base_url", c.Geocoder.BaseURL); err != nil {
		return err
	}
	if c.Geocoder.Timeout < 0 {
		return fmt.Errorf("config validation failed: geocoder.timeout must not be negative, got %s", c.Geocoder.Timeout)
	}
	if c.Finder.Results < 1 {
		return fmt.Errorf("config validation failed: finder.results must be at least 1, got %d", c.Finder.Results)
	}
	if n := c.Finder.AlternativeCount(); n < 0 || n >= c.Finder.Results {
		return fmt.Errorf("config validation failed: finder.alternatives must be between 0 and finder.results-1, got %d", n)
	}
	if err := validateHTTPURL("finder.directions_base_url", c.Finder.DirectionsBaseURL); err != nil {
		return err
	}
	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("config validation failed: telegram.poll_timeout must not be negative")
	}
	if c.Events.NATSURL != "" {
		u, err := url.Parse(c.Events.NATSURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("config validation failed: events.nats_url %q is not a valid url", c.Events.NATSURL)
		}
	}
	if c.HTTP.Listen == "" {
		log.Printf("HTTP API disabled (http.listen is empty)")
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config validation failed: %s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config validation failed: %s must be an http(s) url, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("config validation failed: %s has no host", field)
	}
	return nil
}
