package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads agent profiles from a YAML file. Relative prompt files are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading agents: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing agents: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Agents))
	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		a.Slug = strings.ToLower(strings.TrimSpace(a.Slug))
		if a.Slug == "" {
			return Config{}, fmt.Errorf("agents[%d].slug is required", i)
		}
		if seen[a.Slug] {
			return Config{}, fmt.Errorf("agent[%s] is defined twice", a.Slug)
		}
		seen[a.Slug] = true

		if a.PromptFile != "" && !filepath.IsAbs(a.PromptFile) {
			a.PromptFile = filepath.Join(filepath.Dir(path), a.PromptFile)
		}
	}

	return cfg, nil
}

// GetAgent returns the profile for slug, matched case-insensitively.
func (c Config) GetAgent(slug string) (Agent, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, a := range c.Agents {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Agent{}, fmt.Errorf("agent[%s] does not exist", slug)
}

// DirName is the storage directory for the agent, defaulting to its slug.
func (a Agent) DirName() string {
	if a.Dir != "" {
		return a.Dir
	}
	return a.Slug
}

// DisplayName is the customer-facing brand, defaulting to the title-cased
// slug.
func (a Agent) DisplayName() string {
	if a.CustomerName != "" {
		return a.CustomerName
	}
	if a.Slug == "" {
		return ""
	}
	return strings.ToUpper(a.Slug[:1]) + a.Slug[1:]
}

// ExpectedLanguage is the language the agent greets in, hindi by default.
func (a Agent) ExpectedLanguage() string {
	if a.Language == "" {
		return "hindi"
	}
	return strings.ToLower(a.Language)
}

// Prompt reads the agent's prompt file, falling back to a one-line
// instruction when the file is missing or empty.
func (a Agent) Prompt() string {
	if a.PromptFile != "" {
		if b, err := os.ReadFile(a.PromptFile); err == nil {
			if p := strings.TrimSpace(string(b)); p != "" {
				return p
			}
		}
	}
	return fmt.Sprintf("You are a helpful %s assistant. Be concise and friendly.", a.Slug)
}
