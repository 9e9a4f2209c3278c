package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	LogLevel  string    `yaml:"log_level"`
	LogJSON   bool      `yaml:"log_json"`
	Composer  Composer  `yaml:"composer"`
	Endpoints Endpoints `yaml:"endpoints"`
	Previews  Previews  `yaml:"previews"`
}

// Composer holds the limits a composer instance enforces on a draft.
type Composer struct {
	InputLimit         int           `yaml:"input_limit" validate:"gt=0"`
	ElevatedInputLimit int           `yaml:"elevated_input_limit" validate:"gtefield=InputLimit"`
	MaxAttachments     int           `yaml:"max_attachments" validate:"gt=0"`
	MaxEmbeds          int           `yaml:"max_embeds" validate:"gt=0"`
	EmbedDebounce      time.Duration `yaml:"embed_debounce" validate:"gt=0"`
	SettleDelay        time.Duration `yaml:"settle_delay" validate:"gte=0"`
	AllowedImageMimes  []string      `yaml:"allowed_image_mimes" validate:"min=1,dive,required"`
	MaxAttachmentBytes int64         `yaml:"max_attachment_bytes" validate:"gt=0"`
	PreviewDir         string        `yaml:"preview_dir"` // empty means os.TempDir()
}

// Endpoints are the external services the composer talks to.
type Endpoints struct {
	PreviewsURL   string `yaml:"previews_url" validate:"required,url"`
	UploadURL     string `yaml:"upload_url" validate:"required,url"`
	HubURL        string `yaml:"hub_url" validate:"required,url"`
	Network       string `yaml:"network" validate:"oneof=mainnet testnet devnet"`
	PostURLPrefix string `yaml:"post_url_prefix" validate:"required"`
}

// Previews configures the link preview service.
type Previews struct {
	ListenAddr      string        `yaml:"listen_addr" validate:"required"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gt=0"`
	MaxURLs         int           `yaml:"max_urls" validate:"gt=0"`
	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"gt=0"`
	CacheGCInterval time.Duration `yaml:"cache_gc_interval" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	UserAgent       string        `yaml:"user_agent"`

	// per client IP; the global bucket bounds all clients together
	RequestsPerSec       float64       `yaml:"requests_per_sec" validate:"gt=0"`
	RateLimitBurst       int           `yaml:"rate_limit_burst" validate:"gte=0"`
	GlobalRequestsPerSec float64       `yaml:"global_requests_per_sec" validate:"gtefield=RequestsPerSec"`
	RateLimitIdleTTL     time.Duration `yaml:"rate_limit_idle_ttl" validate:"gt=0"`

	HSTSMaxAge time.Duration `yaml:"hsts_max_age" validate:"gte=0"` // zero when not served over TLS
}

type Private struct {
	SignerKey      string `yaml:"signer_key" validate:"omitempty,hexadecimal,len=64"` // ed25519 seed
	SessionSecret  string `yaml:"session_secret"`
	UploadClientID string `yaml:"upload_client_id"`
	Pg             *Pg    `yaml:"pg"` // optional shared preview cache
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname" validate:"required"`
}

// Default returns the configuration used when a field is absent from the yaml files.
func Default() *Config {
	return &Config{
		Public: Public{
			LogLevel: "info",
			Composer: Composer{
				InputLimit:         280,
				ElevatedInputLimit: 560,
				MaxAttachments:     4,
				MaxEmbeds:          2,
				EmbedDebounce:      1500 * time.Millisecond,
				SettleDelay:        500 * time.Millisecond,
				AllowedImageMimes:  []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
				MaxAttachmentBytes: 20 << 20,
			},
			Endpoints: Endpoints{
				PreviewsURL:   "http://localhost:8090",
				UploadURL:     "https://api.imgur.com/3",
				HubURL:        "http://localhost:2281",
				Network:       "mainnet",
				PostURLPrefix: "/tweet/",
			},
			Previews: Previews{
				ListenAddr:      ":8090",
				FetchTimeout:    5 * time.Second,
				MaxBodyBytes:    1 << 20,
				MaxURLs:         4,
				CacheTTL:        time.Hour,
				CacheGCInterval: 5 * time.Minute,
				UserAgent:       "caster-previews/1.0",

				RequestsPerSec:       5,
				RateLimitBurst:       10,
				GlobalRequestsPerSec: 100,
				RateLimitIdleTTL:     10 * time.Minute,
			},
		},
	}
}

// Validate checks every struct tag constraint.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c.Public); err != nil {
		return fmt.Errorf("invalid public config: %w", err)
	}
	if err := validate.Struct(c.Private); err != nil {
		return fmt.Errorf("invalid private config: %w", err)
	}
	return nil
}

func loadPath(configPath string, output interface{}) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder on top of Default().
func Load(configFolder string) (*Config, error) {
	cfg := Default()
	if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public); err != nil {
		return nil, err
	}
	if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
