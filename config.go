package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aktagon/hourly-writer/store"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir      = ".hourly-writer"
	defaultTimezone       = "Asia/Shanghai"
	defaultItemsPerCycle  = 3
	minTopicMaxTokens     = 200
	defaultTopicMaxTokens = 2000
)

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/generate-prompt.md
var defaultPromptTemplate string

//go:embed config/content-template.md
var defaultDocumentTemplate string

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath   *string
	PromptPath     *string
	TemplatePath   *string
	ContentDirPath *string
}

// ContentTypeSettings describes one content category requested per cycle
type ContentTypeSettings struct {
	Type   string `yaml:"type"`
	TypeCN string `yaml:"type_cn"`
	Icon   string `yaml:"icon"`
	Style  string `yaml:"style"`
}

// AgentSettings configures the generation service
type AgentSettings struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	BaseURL     string  `yaml:"base_url"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	ContentDirectory string                `yaml:"content_directory"`
	DistDirectory    string                `yaml:"dist_directory"`
	SiteFiles        []string              `yaml:"site_files"`
	Timezone         string                `yaml:"timezone"`
	ItemsPerCycle    int                   `yaml:"items_per_cycle"`
	ContentTypes     []ContentTypeSettings `yaml:"content_types"`
	Agent            AgentSettings         `yaml:"agent"`
	TopicSources     []string              `yaml:"topic_sources"`
	TopicMaxTokens   int                   `yaml:"topic_max_tokens"`
	Build            struct {
		Exclude []string `yaml:"exclude"`
	} `yaml:"build"`
}

// Config holds configuration and overrides
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
}

// NewConfig loads settings (writing the embedded defaults on first run) and
// applies overrides
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	var settings *Settings
	var err error
	if overrides != nil && overrides.SettingsPath != nil {
		// Explicit settings file must exist
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
	} else {
		if err := ensureConfigExists(); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
		settings, err = loadSettings(getConfigPath("settings.yaml"))
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	if overrides != nil && overrides.ContentDirPath != nil {
		settings.ContentDirectory = *overrides.ContentDirPath
	}

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &Config{Settings: settings, Overrides: overrides}, nil
}

// GetPromptTemplate returns the generation prompt (from override file or embedded)
func (c *Config) GetPromptTemplate() (string, error) {
	if c.Overrides != nil && c.Overrides.PromptPath != nil {
		data, err := os.ReadFile(*c.Overrides.PromptPath)
		if err != nil {
			return "", fmt.Errorf("reading prompt override: %w", err)
		}
		return string(data), nil
	}
	return defaultPromptTemplate, nil
}

// GetDocumentTemplate returns the markdown template (from override file or embedded)
func (c *Config) GetDocumentTemplate() (string, error) {
	if c.Overrides != nil && c.Overrides.TemplatePath != nil {
		data, err := os.ReadFile(*c.Overrides.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("reading template override: %w", err)
		}
		return string(data), nil
	}
	return defaultDocumentTemplate, nil
}

// Location resolves the fixed civil timezone partition keys are computed in
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// AllowedTypes returns the configured content type enumeration
func (s *Settings) AllowedTypes() []store.ContentType {
	types := make([]store.ContentType, 0, len(s.ContentTypes))
	for _, ct := range s.ContentTypes {
		types = append(types, store.ContentType(ct.Type))
	}
	return types
}

// ContentType looks up the settings of a content type
func (s *Settings) ContentType(t store.ContentType) (ContentTypeSettings, bool) {
	for _, ct := range s.ContentTypes {
		if ct.Type == string(t) {
			return ct, true
		}
	}
	return ContentTypeSettings{}, false
}

// RequestedTypes returns the content types asked for in one cycle
func (s *Settings) RequestedTypes() []ContentTypeSettings {
	return s.ContentTypes[:s.ItemsPerCycle]
}

func (s *Settings) applyDefaults() {
	if s.ContentDirectory == "" {
		s.ContentDirectory = "content"
	}
	if s.DistDirectory == "" {
		s.DistDirectory = "dist"
	}
	if s.Timezone == "" {
		s.Timezone = defaultTimezone
	}
	if s.ItemsPerCycle == 0 {
		s.ItemsPerCycle = defaultItemsPerCycle
	}
	if s.Agent.Provider == "" {
		s.Agent.Provider = providerAnthropic
	}
	if s.TopicMaxTokens == 0 {
		s.TopicMaxTokens = defaultTopicMaxTokens
	}

	// Ensure TopicMaxTokens is at least the minimum
	if s.TopicMaxTokens < minTopicMaxTokens {
		log.Printf("Warning: topic_max_tokens is %d, defaulting to %d (minimum)", s.TopicMaxTokens, minTopicMaxTokens)
		s.TopicMaxTokens = minTopicMaxTokens
	}
}

func (s *Settings) validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}
	if len(s.ContentTypes) == 0 {
		return fmt.Errorf("content_types must not be empty")
	}
	seen := make(map[string]bool, len(s.ContentTypes))
	for i, ct := range s.ContentTypes {
		name := strings.TrimSpace(ct.Type)
		if name == "" {
			return fmt.Errorf("content_types[%d]: type is required", i)
		}
		if seen[name] {
			return fmt.Errorf("content_types[%d]: duplicate type %q", i, name)
		}
		seen[name] = true
	}
	if s.ItemsPerCycle < 1 || s.ItemsPerCycle > len(s.ContentTypes) {
		return fmt.Errorf("items_per_cycle must be between 1 and %d, got %d", len(s.ContentTypes), s.ItemsPerCycle)
	}
	switch s.Agent.Provider {
	case providerAnthropic, providerOpenAI:
	default:
		return fmt.Errorf("unknown agent provider %q (valid: %s, %s)", s.Agent.Provider, providerAnthropic, providerOpenAI)
	}
	return nil
}

// loadSettings loads settings from YAML file with fallback to the embedded defaults
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		data = []byte(defaultSettings)
	}
	return parseSettings(data)
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	settings.applyDefaults()
	return &settings, nil
}

// getConfigPath returns the path to a config file in the config directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates config directory and writes settings.yaml if needed
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write settings.yaml - this should be customized by users
	settingsFile := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}
