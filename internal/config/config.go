package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Provider names returned by LLMConfig.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds all configuration for the application
type Config struct {
	LLM      LLMConfig      `koanf:"llm"`
	Search   SearchConfig   `koanf:"search"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Agents   AgentsConfig   `koanf:"agents"`
	Server   ServerConfig   `koanf:"server"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	// Model is "gemini-2.5-flash", "gemini:<name>", "claude-<name>", "anthropic:<name>",
	// "mock" or "mock:<scenario.yaml>".
	Model string `koanf:"model"`

	// APIKey is the credential for the selected provider. When empty it is
	// resolved from GEMINI_API_KEY / GOOGLE_API_KEY or ANTHROPIC_API_KEY.
	APIKey string `koanf:"api_key"`

	// MaxTokens caps generated tokens per model call (Anthropic only).
	MaxTokens int `koanf:"max_tokens"`
}

// SearchConfig tunes the web search capability.
type SearchConfig struct {
	// MaxResults is the number of results requested per query.
	MaxResults int `koanf:"max_results"`

	// SnippetLimit truncates each result body to this many characters before it
	// is handed to the model.
	SnippetLimit int `koanf:"snippet_limit"`

	// Timeout bounds a single search HTTP request.
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond limits outbound search requests. Zero disables the limiter.
	RatePerSecond float64 `koanf:"rate_per_second"`

	// BaseURL is the DuckDuckGo HTML endpoint.
	BaseURL string `koanf:"base_url"`
}

// PipelineConfig controls stage scheduling.
type PipelineConfig struct {
	// Parallel runs stages without mutual dependencies concurrently.
	Parallel bool `koanf:"parallel"`
}

// AgentsConfig overrides the built-in agent personas. Empty fields keep the defaults.
type AgentsConfig struct {
	Research PersonaConfig `koanf:"research"`
	Guide    PersonaConfig `koanf:"guide"`
	Planner  PersonaConfig `koanf:"planner"`
}

// PersonaConfig is the configurable part of an agent persona.
type PersonaConfig struct {
	Role          string `koanf:"role"`
	Goal          string `koanf:"goal"`
	Backstory     string `koanf:"backstory"`
	MaxIterations int    `koanf:"max_iterations"`
}

// ServerConfig configures the web front end.
type ServerConfig struct {
	Port int `koanf:"port"`

	// PlanTTL is how long a rendered plan stays downloadable.
	PlanTTL time.Duration `koanf:"plan_ttl"`

	// MaxPlans bounds the number of downloadable plans kept in memory.
	MaxPlans int `koanf:"max_plans"`

	// RequestsPerMinute limits plan submissions per client address. Zero disables it.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers identify the client. Empty means no proxy is trusted.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	TLSCAPath   string `koanf:"tls_ca_path"`
	TLSInsecure bool   `koanf:"tls_insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "gemini-2.5-flash",
			MaxTokens: 8192,
		},
		Search: SearchConfig{
			MaxResults:    3,
			SnippetLimit:  200,
			Timeout:       10 * time.Second,
			RatePerSecond: 1,
			BaseURL:       "https://html.duckduckgo.com/html/",
		},
		Server: ServerConfig{
			Port:              8501,
			PlanTTL:           30 * time.Minute,
			MaxPlans:          256,
			RequestsPerMinute: 10,
		},
	}
}

// Provider returns the backend implied by the model name.
func (c LLMConfig) Provider() string {
	model := strings.ToLower(c.Model)
	switch {
	case model == ProviderMock || strings.HasPrefix(model, ProviderMock+":"):
		return ProviderMock
	case strings.HasPrefix(model, "claude") || strings.HasPrefix(model, ProviderAnthropic+":"):
		return ProviderAnthropic
	default:
		return ProviderGemini
	}
}

// ModelName returns the model identifier with any "provider:" prefix removed.
func (c LLMConfig) ModelName() string {
	for _, prefix := range []string{ProviderGemini + ":", ProviderAnthropic + ":", ProviderMock + ":"} {
		if rest, ok := strings.CutPrefix(c.Model, prefix); ok {
			return rest
		}
	}
	return c.Model
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return NewConfigurationError("llm.model must not be empty")
	}
	if c.LLM.MaxTokens < 0 {
		return NewConfigurationError("llm.max_tokens must not be negative")
	}

	if c.Search.MaxResults < 1 {
		return NewConfigurationError("search.max_results must be at least 1")
	}
	if c.Search.SnippetLimit < 1 {
		return NewConfigurationError("search.snippet_limit must be at least 1")
	}
	if c.Search.Timeout <= 0 {
		return NewConfigurationError("search.timeout must be positive")
	}
	if c.Search.RatePerSecond < 0 {
		return NewConfigurationError("search.rate_per_second must not be negative")
	}
	if c.Search.BaseURL == "" {
		return NewConfigurationError("search.base_url must not be empty")
	}

	for name, p := range map[string]PersonaConfig{
		"research": c.Agents.Research,
		"guide":    c.Agents.Guide,
		"planner":  c.Agents.Planner,
	} {
		if p.MaxIterations < 0 {
			return NewConfigurationError(fmt.Sprintf("agents.%s.max_iterations must not be negative", name))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigurationError("server.port must be between 1 and 65535")
	}
	if c.Server.PlanTTL <= 0 {
		return NewConfigurationError("server.plan_ttl must be positive")
	}
	if c.Server.MaxPlans < 1 {
		return NewConfigurationError("server.max_plans must be at least 1")
	}
	if c.Server.RequestsPerMinute < 0 {
		return NewConfigurationError("server.requests_per_minute must not be negative")
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return NewConfigurationError("server.trusted_proxies: " + err.Error())
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigurationError("tracing.endpoint must be set when tracing is enabled")
	}

	return nil
}

// RequireAPIKey fails when the selected provider needs a credential and none was resolved.
func (c *Config) RequireAPIKey() error {
	if c.LLM.Provider() == ProviderMock || c.LLM.APIKey != "" {
		return nil
	}
	switch c.LLM.Provider() {
	case ProviderAnthropic:
		return NewConfigurationError("ANTHROPIC_API_KEY not found: set it in the environment or llm.api_key in the config file")
	default:
		return NewConfigurationError("GEMINI_API_KEY not found: set it in the environment or llm.api_key in the config file")
	}
}

// ConfigurationError is a fatal configuration problem detected before any pipeline starts.
type ConfigurationError struct {
	message string
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{message: message}
}

// Error returns the error message
func (e *ConfigurationError) Error() string {
	return e.message
}
