package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/store"
)

const (
	DefaultDatasetFile = "all-states-history.csv"

	DefaultProvider = "openai"
	DefaultModel    = llm.DefaultAzureModel

	// ProviderFromEnv picks the provider with llm.GetLLMFromEnv
	ProviderFromEnv = "auto"
)

// Config is the full set of statesqa settings
type Config struct {
	Data         DataConfig         `mapstructure:"data"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Store        store.Config       `mapstructure:"store"`
	Log          LogConfig          `mapstructure:"log"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// DataConfig locates the states-history CSV
type DataConfig struct {
	Path string `mapstructure:"path"`
	File string `mapstructure:"file"`
}

// LLMConfig selects and configures the model provider
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	AzureEndpoint string        `mapstructure:"azure_endpoint"`
	APIVersion    string        `mapstructure:"api_version"`
	Region        string        `mapstructure:"region"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// OrchestratorConfig tunes the question-answering turns
type OrchestratorConfig struct {
	Temperature   *float32      `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	ResultSummary bool          `mapstructure:"result_summary"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// envBindings maps config keys to the environment variables that set them,
// in order of preference
var envBindings = map[string][]string{
	"data.path":          {"DATA_PATH", "STATESQA_DATA_PATH"},
	"data.file":          {"STATESQA_DATA_FILE"},
	"llm.provider":       {"STATESQA_LLM_PROVIDER"},
	"llm.model":          {"STATESQA_LLM_MODEL"},
	"llm.api_key":        {"STATESQA_LLM_API_KEY", "AZURE_OPENAI_API_KEY"},
	"llm.base_url":       {"STATESQA_LLM_BASE_URL"},
	"llm.azure_endpoint": {"AZURE_OPENAI_ENDPOINT"},
	"llm.api_version":    {"AZURE_OPENAI_API_VERSION"},
	"llm.region":         {"AWS_REGION"},
	"store.driver":       {"STATESQA_STORE_DRIVER"},
	"store.dsn":          {"STATESQA_STORE_DSN"},
	"store.table":        {"STATESQA_STORE_TABLE"},
	"log.level":          {"STATESQA_LOG_LEVEL"},
	"log.format":         {"STATESQA_LOG_FORMAT"},
}

// providerKeyEnv names the variable holding the API key of each hosted provider
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"azure":      "AZURE_OPENAI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads the configuration. An empty path searches for statesqa.{toml,yaml}
// in the working directory and ./config; a missing file is not an error then.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	for key, vars := range envBindings {
		if err := v.BindEnv(append([]string{key}, vars...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("statesqa")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.file", DefaultDatasetFile)

	v.SetDefault("llm.provider", DefaultProvider)
	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.api_version", llm.DefaultAzureAPIVersion)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)

	v.SetDefault("store.driver", store.DefaultDriver)
	v.SetDefault("store.table", store.DefaultTable)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("orchestrator.timeout", 2*time.Minute)
}

// DatasetPath returns the CSV location. An absolute data.file is used as is.
func (c *Config) DatasetPath() string {
	file := c.Data.File
	if file == "" {
		file = DefaultDatasetFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Data.Path, file)
}

// Validate reports settings that would fail later at runtime
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Data.Path) == "" {
		errs = append(errs, errors.New("data.path is required"))
	}

	if !identifierRe.MatchString(c.Store.TableName()) {
		errs = append(errs, fmt.Errorf("store.table %q is not a valid identifier", c.Store.Table))
	}
	if _, err := c.Store.GetDSN(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateLLM(); err != nil {
		errs = append(errs, err)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (c *Config) validateLLM() error {
	provider := strings.ToLower(c.LLM.Provider)
	if provider == ProviderFromEnv {
		return nil
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if provider == "azure" && c.LLM.AzureEndpoint == "" && c.LLM.BaseURL == "" {
		return errors.New("azure requires llm.azure_endpoint (AZURE_OPENAI_ENDPOINT)")
	}
	if env, ok := providerKeyEnv[provider]; ok && c.apiKey() == "" {
		if provider == "openai" && c.LLM.BaseURL != "" && c.LLM.AzureEndpoint == "" {
			// OpenAI-compatible endpoints may not need a key
			return nil
		}
		return fmt.Errorf("%s requires llm.api_key or %s", provider, env)
	}
	return nil
}

// apiKey returns the configured key, falling back to the provider's usual variable
func (c *Config) apiKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	provider := strings.ToLower(c.LLM.Provider)
	if provider == "openai" && c.LLM.AzureEndpoint != "" {
		if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
			return key
		}
	}
	if env, ok := providerKeyEnv[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// ClientConfig returns the settings for factory.CreateClient
func (c *Config) ClientConfig() llm.ClientConfig {
	if strings.EqualFold(c.LLM.Provider, ProviderFromEnv) {
		return llm.GetLLMFromEnv()
	}

	cfg := llm.ClientConfig{
		Provider: strings.ToLower(c.LLM.Provider),
		Model:    c.LLM.Model,
		APIKey:   c.apiKey(),
		BaseURL:  c.LLM.BaseURL,
		Timeout:  c.LLM.Timeout,
	}
	if c.LLM.AzureEndpoint != "" {
		cfg.SetExtra(llm.ExtraAzureEndpoint, c.LLM.AzureEndpoint)
		cfg.SetExtra(llm.ExtraAPIVersion, c.LLM.APIVersion)
	}
	if c.LLM.Region != "" {
		cfg.SetExtra(llm.ExtraRegion, c.LLM.Region)
	}
	return cfg
}
