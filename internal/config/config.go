package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AppName     = "trendgal"
	EnvFileName = "config.env"
)

// ErrMissingConfig is wrapped by errors about absent required settings.
var ErrMissingConfig = errors.New("missing required config")

// Keys read from the environment.
const (
	KeyLLMProvider       = "LLM_PROVIDER"
	KeyGeminiAPIKey      = "GEMINI_API_KEY"
	KeyGeminiModel       = "GEMINI_MODEL"
	KeyOpenAIAPIKey      = "OPENAI_API_KEY"
	KeyOpenAIBaseURL     = "OPENAI_BASE_URL"
	KeyOpenAIModel       = "OPENAI_MODEL"
	KeyYahooClientID     = "YAHOO_CLIENT_ID"
	KeyYahooBaseURL      = "YAHOO_BASE_URL"
	KeySearchRate        = "SEARCH_RATE_PER_SECOND"
	KeyGoogleAPIKey      = "GOOGLE_API_KEY"
	KeyServiceAccountKey = "GOOGLE_SERVICE_ACCOUNT_KEY"
	KeyVisionBaseURL     = "VISION_BASE_URL"
	KeyRegionColorSource = "REGION_COLOR_SOURCE"
	KeyListenAddr        = "LISTEN_ADDR"
	KeyDBPath            = "DB_PATH"
	KeyBotToken          = "BOT_TOKEN"
	KeyDefaultPersona    = "DEFAULT_PERSONA"
)

// Region color sources.
const (
	RegionColorsVision = "vision"
	RegionColorsLocal  = "local"
	RegionColorsNone   = "none"
)

type Config struct {
	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	YahooClientID     string
	YahooBaseURL      string
	SearchRate        float64
	GoogleAPIKey      string
	ServiceAccountKey string
	VisionBaseURL     string
	RegionColorSource string
	ListenAddr        string
	DBPath            string
	BotToken          string
	DefaultPersona    string
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory, then from .env in the working directory. Variables that
// are already set win. Errors are ignored since the files may not exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load()
}

// Load reads configuration from the environment with defaults applied.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyLLMProvider, "gemini")
	v.SetDefault(KeySearchRate, 5.0)
	v.SetDefault(KeyRegionColorSource, RegionColorsVision)
	v.SetDefault(KeyListenAddr, ":3000")
	v.SetDefault(KeyDBPath, "trendgal.db")
	v.SetDefault(KeyDefaultPersona, "kurisu")

	return &Config{
		LLMProvider:       strings.ToLower(v.GetString(KeyLLMProvider)),
		GeminiAPIKey:      v.GetString(KeyGeminiAPIKey),
		GeminiModel:       v.GetString(KeyGeminiModel),
		OpenAIAPIKey:      v.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL:     v.GetString(KeyOpenAIBaseURL),
		OpenAIModel:       v.GetString(KeyOpenAIModel),
		YahooClientID:     v.GetString(KeyYahooClientID),
		YahooBaseURL:      v.GetString(KeyYahooBaseURL),
		SearchRate:        v.GetFloat64(KeySearchRate),
		GoogleAPIKey:      v.GetString(KeyGoogleAPIKey),
		ServiceAccountKey: v.GetString(KeyServiceAccountKey),
		VisionBaseURL:     v.GetString(KeyVisionBaseURL),
		RegionColorSource: strings.ToLower(v.GetString(KeyRegionColorSource)),
		ListenAddr:        v.GetString(KeyListenAddr),
		DBPath:            v.GetString(KeyDBPath),
		BotToken:          v.GetString(KeyBotToken),
		DefaultPersona:    v.GetString(KeyDefaultPersona),
	}
}

// Missing returns the names of required settings that are not set. The
// vision and catalog credentials are always required; the generator key
// depends on the selected provider.
func (c *Config) Missing() []string {
	var missing []string
	if c.GoogleAPIKey == "" && c.ServiceAccountKey == "" {
		missing = append(missing, KeyGoogleAPIKey+" or "+KeyServiceAccountKey)
	}
	if c.YahooClientID == "" {
		missing = append(missing, KeyYahooClientID)
	}
	switch c.LLMProvider {
	case "gemini", "":
		if c.GeminiAPIKey == "" {
			missing = append(missing, KeyGeminiAPIKey)
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			missing = append(missing, KeyOpenAIAPIKey)
		}
	}
	return missing
}

// Validate returns an error wrapping ErrMissingConfig when required settings
// are absent, or when a setting has an unsupported value.
func (c *Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	switch c.LLMProvider {
	case "gemini", "openai", "none", "":
	default:
		return fmt.Errorf("unsupported %s %q", KeyLLMProvider, c.LLMProvider)
	}
	switch c.RegionColorSource {
	case RegionColorsVision, RegionColorsLocal, RegionColorsNone:
	default:
		return fmt.Errorf("unsupported %s %q", KeyRegionColorSource, c.RegionColorSource)
	}
	return nil
}
