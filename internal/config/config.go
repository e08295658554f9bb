package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "America/Sao_Paulo"
	configPathEnv       = "AUCTION_HARVESTER_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	databaseDSNEnv      = "DATABASE_DSN"
	databaseDriverEnv   = "DATABASE_DRIVER"
	geocodingProvEnv    = "GEOCODING_PROVIDER"
	geoapifyAPIKeyEnv   = "GEOAPIFY_API_KEY"
	locationIQAPIKeyEnv = "LOCATIONIQ_API_KEY"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	harvestRegionsEnv   = "HARVEST_REGIONS"
	httpAddrEnv         = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Source        SourceConfig       `yaml:"source"`
	Retry         RetryConfig        `yaml:"retry"`
	Harvest       HarvestConfig      `yaml:"harvest"`
	Geocoding     GeocodingConfig    `yaml:"geocoding"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. Driver is either
// "postgres" (lib/pq) or "pgx". An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// SourceConfig points at the listing site and its endpoints.
type SourceConfig struct {
	BaseURL       string          `yaml:"baseUrl"`
	SearchPath    string          `yaml:"searchPath"`
	ListPath      string          `yaml:"listPath"`
	DetailPath    string          `yaml:"detailPath"`
	UserAgent     string          `yaml:"userAgent"`
	Timeout       time.Duration   `yaml:"timeout"`
	DetailTimeout time.Duration   `yaml:"detailTimeout"`
	VerifyTLS     TLSVerifyConfig `yaml:"verifyTls"`
	Timezone      string          `yaml:"timezone"`
	location      *time.Location  `yaml:"-"`
}

// Location resolves the zone in which source dates are printed.
func (s SourceConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return loadLocation(s.Timezone)
}

// TLSVerifyConfig enables certificate verification per call site. The
// source has served broken chains, so verification is off by default.
type TLSVerifyConfig struct {
	Search bool `yaml:"search"`
	List   bool `yaml:"list"`
	Detail bool `yaml:"detail"`
}

// RetryConfig drives the request client's backoff.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
	Jitter      bool          `yaml:"jitter"`
}

// HarvestConfig lists what to scrape and how fast.
type HarvestConfig struct {
	Regions      []string         `yaml:"regions"`
	Categories   []CategoryConfig `yaml:"categories"`
	Rooms        string           `yaml:"rooms"`
	BatchSize    int              `yaml:"batchSize"`
	ItemDelayMin time.Duration    `yaml:"itemDelayMin"`
	ItemDelayMax time.Duration    `yaml:"itemDelayMax"`
	BatchPause   time.Duration    `yaml:"batchPause"`
}

// CategoryConfig is one sale category code and its stored modality label.
type CategoryConfig struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Modality string `yaml:"modality"`
}

// GeocodingConfig selects and configures the geocoding provider.
type GeocodingConfig struct {
	Provider          string           `yaml:"provider"`
	Timeout           time.Duration    `yaml:"timeout"`
	CountryCode       string           `yaml:"countryCode"`
	Language          string           `yaml:"language"`
	AutocompleteLimit int              `yaml:"autocompleteLimit"`
	Geoapify          ProviderEndpoint `yaml:"geoapify"`
	LocationIQ        ProviderEndpoint `yaml:"locationiq"`
}

// ProviderEndpoint holds one provider's base URL, key and pacing.
type ProviderEndpoint struct {
	BaseURL  string        `yaml:"baseUrl"`
	APIKey   string        `yaml:"apiKey"`
	Interval time.Duration `yaml:"interval"`
}

// SchedulerConfig defines how often the harvest runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return loadLocation(s.Timezone)
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// HTTPConfig is the operator endpoint listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezones()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, err
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(geocodingProvEnv); v != "" {
		c.Geocoding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(geoapifyAPIKeyEnv); v != "" {
		c.Geocoding.Geoapify.APIKey = v
	}
	if v := os.Getenv(locationIQAPIKeyEnv); v != "" {
		c.Geocoding.LocationIQ.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(harvestRegionsEnv); v != "" {
		c.Harvest.Regions = SplitList(v)
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone)
	c.Source.location = loadLocation(c.Source.Timezone)
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, using fixed UTC-3", tz)
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.MaxOpenConns > 0 {
		base.Database.MaxOpenConns = override.Database.MaxOpenConns
	}

	base.Source = mergeSource(base.Source, override.Source)

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelay > 0 {
		base.Retry.BaseDelay = override.Retry.BaseDelay
	}
	if override.Retry.MaxDelay > 0 {
		base.Retry.MaxDelay = override.Retry.MaxDelay
	}
	if override.Retry.Jitter {
		base.Retry.Jitter = true
	}

	if len(override.Harvest.Regions) > 0 {
		base.Harvest.Regions = override.Harvest.Regions
	}
	if len(override.Harvest.Categories) > 0 {
		base.Harvest.Categories = override.Harvest.Categories
	}
	if override.Harvest.Rooms != "" {
		base.Harvest.Rooms = override.Harvest.Rooms
	}
	if override.Harvest.BatchSize > 0 {
		base.Harvest.BatchSize = override.Harvest.BatchSize
	}
	if override.Harvest.ItemDelayMin > 0 {
		base.Harvest.ItemDelayMin = override.Harvest.ItemDelayMin
	}
	if override.Harvest.ItemDelayMax > 0 {
		base.Harvest.ItemDelayMax = override.Harvest.ItemDelayMax
	}
	if override.Harvest.BatchPause > 0 {
		base.Harvest.BatchPause = override.Harvest.BatchPause
	}

	base.Geocoding = mergeGeocoding(base.Geocoding, override.Geocoding)

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	return base
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.SearchPath != "" {
		base.SearchPath = override.SearchPath
	}
	if override.ListPath != "" {
		base.ListPath = override.ListPath
	}
	if override.DetailPath != "" {
		base.DetailPath = override.DetailPath
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.DetailTimeout > 0 {
		base.DetailTimeout = override.DetailTimeout
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	if override.VerifyTLS.Search {
		base.VerifyTLS.Search = true
	}
	if override.VerifyTLS.List {
		base.VerifyTLS.List = true
	}
	if override.VerifyTLS.Detail {
		base.VerifyTLS.Detail = true
	}
	return base
}

func mergeGeocoding(base, override GeocodingConfig) GeocodingConfig {
	if override.Provider != "" {
		base.Provider = strings.ToLower(override.Provider)
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.CountryCode != "" {
		base.CountryCode = override.CountryCode
	}
	if override.Language != "" {
		base.Language = override.Language
	}
	if override.AutocompleteLimit > 0 {
		base.AutocompleteLimit = override.AutocompleteLimit
	}
	base.Geoapify = mergeEndpoint(base.Geoapify, override.Geoapify)
	base.LocationIQ = mergeEndpoint(base.LocationIQ, override.LocationIQ)
	return base
}

func mergeEndpoint(base, override ProviderEndpoint) ProviderEndpoint {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Interval > 0 {
		base.Interval = override.Interval
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "postgres", MaxOpenConns: 5},
		Source: SourceConfig{
			BaseURL:       "https://venda-imoveis.caixa.gov.br",
			SearchPath:    "/sistema/carregaPesquisaImoveis.asp",
			ListPath:      "/sistema/carregaListaImoveis.asp",
			DetailPath:    "/sistema/detalhe-imovel.asp",
			Timeout:       60 * time.Second,
			DetailTimeout: 30 * time.Second,
			Timezone:      defaultTimezone,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
		},
		Harvest: HarvestConfig{
			Regions: []string{
				"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
				"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
			},
			Categories: []CategoryConfig{
				{Code: "34", Name: "Venda Online", Modality: "Venda Direta"},
				{Code: "14", Name: "Leilão SFI", Modality: "Leilão SFI - Edital Único"},
			},
			BatchSize:    10,
			ItemDelayMin: 500 * time.Millisecond,
			ItemDelayMax: time.Second,
			BatchPause:   2 * time.Second,
		},
		Geocoding: GeocodingConfig{
			Provider:          "geoapify",
			Timeout:           10 * time.Second,
			CountryCode:       "br",
			Language:          "pt",
			AutocompleteLimit: 5,
			Geoapify: ProviderEndpoint{
				BaseURL:  "https://api.geoapify.com",
				Interval: 500 * time.Millisecond,
			},
			LocationIQ: ProviderEndpoint{
				BaseURL:  "https://us1.locationiq.com",
				Interval: 1100 * time.Millisecond,
			},
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		HTTP:      HTTPConfig{Addr: ":8080"},
	}
}
