package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aktagon/hourly-writer/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEmbeddedSettings(t *testing.T) {
	settings, err := parseSettings([]byte(defaultSettings))
	require.NoError(t, err)
	require.NoError(t, settings.validate())

	assert.Equal(t, "content", settings.ContentDirectory)
	assert.Equal(t, "Asia/Shanghai", settings.Timezone)
	assert.Equal(t, 3, settings.ItemsPerCycle)
	assert.Equal(t, providerAnthropic, settings.Agent.Provider)
	assert.Equal(t, []store.ContentType{store.TypeEconomy, store.TypeInspiration, store.TypeViral}, settings.AllowedTypes())
	assert.Equal(t, []string{"*.tmp", ".*"}, settings.Build.Exclude)
}

func TestParseSettingsDefaults(t *testing.T) {
	settings, err := parseSettings([]byte("content_types:\n  - type: economy\n"))
	require.NoError(t, err)

	assert.Equal(t, "content", settings.ContentDirectory)
	assert.Equal(t, "dist", settings.DistDirectory)
	assert.Equal(t, defaultTimezone, settings.Timezone)
	assert.Equal(t, defaultItemsPerCycle, settings.ItemsPerCycle)
	assert.Equal(t, defaultTopicMaxTokens, settings.TopicMaxTokens)
	assert.Equal(t, providerAnthropic, settings.Agent.Provider)
}

func TestParseSettingsTopicMaxTokensMinimum(t *testing.T) {
	settings, err := parseSettings([]byte("topic_max_tokens: 50\n"))
	require.NoError(t, err)
	assert.Equal(t, minTopicMaxTokens, settings.TopicMaxTokens)
}

func TestParseSettingsInvalidYAML(t *testing.T) {
	_, err := parseSettings([]byte("content_types: [unclosed"))
	assert.Error(t, err)
}

func TestLoadSettingsFallsBackToEmbedded(t *testing.T) {
	settings, err := loadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, settings.ContentTypes, 3)

	_, err = loadSettingsRequired(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown timezone", "timezone: Mars/Olympus\ncontent_types:\n  - type: a\n", "timezone"},
		{"no content types", "items_per_cycle: 1\n", "content_types must not be empty"},
		{"blank type", "items_per_cycle: 1\ncontent_types:\n  - type: \" \"\n", "type is required"},
		{"duplicate type", "items_per_cycle: 2\ncontent_types:\n  - type: a\n  - type: a\n", "duplicate type"},
		{"too many items", "items_per_cycle: 2\ncontent_types:\n  - type: a\n", "items_per_cycle"},
		{"negative items", "items_per_cycle: -1\ncontent_types:\n  - type: a\n", "items_per_cycle"},
		{"unknown provider", "items_per_cycle: 1\ncontent_types:\n  - type: a\nagent:\n  provider: bard\n", "unknown agent provider"},
		{"valid", "timezone: UTC\nitems_per_cycle: 1\ncontent_types:\n  - type: a\nagent:\n  provider: openai\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := parseSettings([]byte(tt.yaml))
			require.NoError(t, err)

			err = settings.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsRequestedTypes(t *testing.T) {
	settings, err := parseSettings([]byte(defaultSettings))
	require.NoError(t, err)

	settings.ItemsPerCycle = 2
	requested := settings.RequestedTypes()
	require.Len(t, requested, 2)
	assert.Equal(t, "economy", requested[0].Type)
	assert.Equal(t, "inspiration", requested[1].Type)

	ct, ok := settings.ContentType(store.TypeViral)
	require.True(t, ok)
	assert.Equal(t, "🔥", ct.Icon)

	_, ok = settings.ContentType("gossip")
	assert.False(t, ok)
}

func TestNewConfigWithOverrides(t *testing.T) {
	settingsPath := writeSettings(t, "timezone: UTC\nitems_per_cycle: 1\ncontent_types:\n  - type: economy\n    icon: x\n")
	contentPath := filepath.Join(t.TempDir(), "out")

	config, err := NewConfig(&ConfigOverrides{SettingsPath: &settingsPath, ContentDirPath: &contentPath})
	require.NoError(t, err)

	assert.Equal(t, contentPath, config.Settings.ContentDirectory)
	loc, err := config.Settings.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	prompt, err := config.GetPromptTemplate()
	require.NoError(t, err)
	assert.Equal(t, defaultPromptTemplate, prompt)
}

func TestNewConfigMissingSettingsFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := NewConfig(&ConfigOverrides{SettingsPath: &missing})
	assert.Error(t, err)
}

func TestNewConfigInvalidSettings(t *testing.T) {
	settingsPath := writeSettings(t, "items_per_cycle: 5\ncontent_types:\n  - type: a\n")
	_, err := NewConfig(&ConfigOverrides{SettingsPath: &settingsPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestNewConfigWritesDefaultSettings(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := NewConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "content", config.Settings.ContentDirectory)

	data, err := os.ReadFile(filepath.Join(defaultConfigDir, "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings, string(data))
}

func TestTemplateOverrides(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	templatePath := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("custom prompt"), 0644))
	require.NoError(t, os.WriteFile(templatePath, []byte("custom template"), 0644))

	config := &Config{Overrides: &ConfigOverrides{PromptPath: &promptPath, TemplatePath: &templatePath}}

	prompt, err := config.GetPromptTemplate()
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", prompt)

	doc, err := config.GetDocumentTemplate()
	require.NoError(t, err)
	assert.Equal(t, "custom template", doc)

	missing := filepath.Join(dir, "missing.md")
	config.Overrides.TemplatePath = &missing
	_, err = config.GetDocumentTemplate()
	assert.Error(t, err)
}
