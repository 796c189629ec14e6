package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LABINTERP_STORE_DSN.
const EnvPrefix = "LABINTERP"

// Config holds all application configuration
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Queue      QueueConfig      `mapstructure:"queue"`
}

// OCRConfig holds the external tool settings used by the text extractor
type OCRConfig struct {
	Pdftotext           string `mapstructure:"pdftotext"`
	Pdftoppm            string `mapstructure:"pdftoppm"`
	Tesseract           string `mapstructure:"tesseract"`
	TesseractLang       string `mapstructure:"tesseract_lang"`
	DPI                 int    `mapstructure:"dpi"`
	MaxPages            int    `mapstructure:"max_pages"`
	TessdataDir         string `mapstructure:"tessdata_dir"`
	HeicConverter       string `mapstructure:"heic_converter"`
	EnableTSVConfidence bool   `mapstructure:"enable_tsv_confidence"`
	PSM                 int    `mapstructure:"psm"`
	OEM                 int    `mapstructure:"oem"`
	ArtifactCacheDir    string `mapstructure:"artifact_cache_dir"`
}

// ExtractionConfig controls the direct-then-recognition strategy chain
type ExtractionConfig struct {
	MinChars           int           `mapstructure:"min_chars"`
	RecognitionTimeout time.Duration `mapstructure:"recognition_timeout"`
}

// RulesConfig points at rule table overrides. Empty paths use the embedded defaults.
type RulesConfig struct {
	RangesFile         string `mapstructure:"ranges_file"`
	SymptomsFile       string `mapstructure:"symptoms_file"`
	InterpretationFile string `mapstructure:"interpretation_file"`
	SafetyFile         string `mapstructure:"safety_file"`
}

// StoreConfig holds run-history database configuration
type StoreConfig struct {
	Driver           string        `mapstructure:"driver"` // sqlite | postgres | none
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | logfmt
}

// QueueConfig holds batch worker settings
type QueueConfig struct {
	Workers int           `mapstructure:"workers"`
	Size    int           `mapstructure:"size"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.enable_tsv_confidence", true)
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.artifact_cache_dir", "")

	v.SetDefault("extraction.min_chars", 40)
	v.SetDefault("extraction.recognition_timeout", "60s")

	v.SetDefault("rules.ranges_file", "")
	v.SetDefault("rules.symptoms_file", "")
	v.SetDefault("rules.interpretation_file", "")
	v.SetDefault("rules.safety_file", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:labinterp.db?_pragma=busy_timeout(5000)")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.max_conn_lifetime", "30m")
	v.SetDefault("store.max_conn_idle_time", "5m")
	v.SetDefault("store.dial_timeout", "3s")
	v.SetDefault("store.statement_timeout", "0s")

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 256)
	v.SetDefault("queue.timeout", "3m")
}

// LoadConfig reads defaults, an optional config file, then LABINTERP_* environment variables.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, ConfigError(fmt.Sprintf("read config file %q", configFile), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ConfigError("decode config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Extraction.MinChars <= 0 {
		return ConfigError("extraction.min_chars must be positive", nil)
	}
	if c.Extraction.RecognitionTimeout < 0 {
		return ConfigError("extraction.recognition_timeout must not be negative", nil)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return ConfigError("store.dsn is required for driver "+c.Store.Driver, nil)
		}
	case "none", "":
	default:
		return ConfigError(fmt.Sprintf("unknown store.driver %q", c.Store.Driver), nil)
	}
	switch c.Log.Format {
	case "json", "logfmt", "text", "":
	default:
		return ConfigError(fmt.Sprintf("unknown log.format %q", c.Log.Format), nil)
	}
	if c.Queue.Workers <= 0 {
		return ConfigError("queue.workers must be positive", nil)
	}
	return nil
}
