package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. BONVOYAGE_SEARCH_SNIPPET_LIMIT.
const EnvPrefix = "BONVOYAGE_"

// Load builds the configuration from defaults, an optional YAML file and the environment.
//
// Precedence (highest first):
//  1. BONVOYAGE_* environment variables
//  2. the YAML file at path (skipped when path is empty)
//  3. Default()
//
// When llm.api_key is still empty afterwards it is taken from the provider's
// well-known variable (GEMINI_API_KEY, GOOGLE_API_KEY, ANTHROPIC_API_KEY).
// Load does not require the key; call RequireAPIKey before building a model.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, NewConfigurationError(fmt.Sprintf("failed to load config from %q: %v", path, err))
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("failed to load environment overrides: %v", err))
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("failed to parse config: %v", err))
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = lookupAPIKey(cfg.LLM.Provider())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// listKeys are the keys whose environment values are comma-separated lists.
var listKeys = map[string]bool{
	"server.trusted_proxies": true,
}

func envValue(key, value string) (string, interface{}) {
	path := envKeyToPath(key)
	if listKeys[path] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return path, items
	}
	return path, value
}

// envKeyToPath maps BONVOYAGE_SEARCH_SNIPPET_LIMIT to search.snippet_limit.
// The agents section nests one level deeper:
// BONVOYAGE_AGENTS_PLANNER_MAX_ITERATIONS -> agents.planner.max_iterations.
func envKeyToPath(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	if section == "agents" {
		if persona, field, ok := strings.Cut(rest, "_"); ok {
			return section + "." + persona + "." + field
		}
	}
	return section + "." + rest
}

func lookupAPIKey(provider string) string {
	var names []string
	switch provider {
	case ProviderAnthropic:
		names = []string{"ANTHROPIC_API_KEY"}
	case ProviderGemini:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
