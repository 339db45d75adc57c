package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
project:
  output_dir: build
engine:
  placeholder_style: curly
render:
  formats: [markdown, json, docx]
  preview_style: notty
organization:
  profile:
    name: Acme Corp
    legal_name: Acme Corporation Ltd
  contact:
    digital:
      email: info@acme.example
    phone:
      main: "+254700000000"
    address:
      street: 1 Main St
      city: Nairobi
      country: Kenya
  operations:
    business_hours:
      days: Monday to Friday
      weekdays: 9:00 AM - 5:00 PM
    fiscal_year:
      start: July 1
      end: June 30
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_AppliesDefaultsAndFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "build", cfg.Project.OutputDir)
	assert.Equal(t, "manualgen.db", cfg.Project.DB)
	assert.Equal(t, "content_*.json", cfg.Project.ContentGlob)
	assert.Equal(t, 3, cfg.Engine.MaxHeadingLevel)
	assert.Equal(t, "curly", cfg.Engine.PlaceholderStyle)
	assert.Equal(t, []string{"markdown", "json", "docx"}, cfg.Render.Formats)
	assert.Equal(t, "notty", cfg.Render.PreviewStyle)
	assert.Equal(t, "Acme Corp", cfg.Organization.Profile.Name)
	assert.NoError(t, cfg.Check())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MANUALGEN_OUTPUT_DIR", "/tmp/out")
	t.Setenv("MANUALGEN_DB", "/tmp/runs.db")
	t.Setenv("MANUALGEN_LOG_LEVEL", "debug")
	t.Setenv("MANUALGEN_INDEX_DIR", "/tmp/idx")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.Project.OutputDir)
	assert.Equal(t, "/tmp/runs.db", cfg.Project.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/idx", cfg.Project.IndexDir)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "project: [unclosed"))
	require.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Render.Formats, cfg.Render.Formats)
	assert.Equal(t, "square", cfg.Engine.PlaceholderStyle)
}

func TestCheck_RejectsUnknownSettings(t *testing.T) {
	cfg := Default()
	cfg.Engine.PlaceholderStyle = "angle"
	assert.Error(t, cfg.Check())

	cfg = Default()
	cfg.Render.Formats = []string{"pdf"}
	assert.Error(t, cfg.Check())
}

func TestOrganizationVariables(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	vars := cfg.Organization.Variables()
	assert.Equal(t, map[string]string{
		"COMPANY_NAME":            "Acme Corp",
		"COMPANY_LEGAL_NAME":      "Acme Corporation Ltd",
		"COMPANY_EMAIL":           "info@acme.example",
		"COMPANY_PHONE":           "+254700000000",
		"EMERGENCY_CONTACT":       "+254700000000",
		"COMPANY_ADDRESS":         "1 Main St, Nairobi, Kenya",
		"BUSINESS_HOURS":          "Monday to Friday, 9:00 AM - 5:00 PM",
		"FISCAL_YEAR":             "July 1 to June 30",
		"DOCUMENT_CLASSIFICATION": "Internal Use",
		"SCOPE_EMPLOYEES":         "All employees, contractors, and temporary staff",
	}, vars)
}

func TestOrganizationValidate(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	r := cfg.Organization.Validate()
	assert.True(t, r.Valid())
	assert.Empty(t, r.Warnings)

	var o Organization
	o.Contact.Digital.Email = "not-an-email"
	o.Contact.Phone.Main = "0700 000 000"
	o.Operations.FiscalYear.Start = "Jul 1st"
	o.Operations.FiscalYear.End = "June 30"
	r = o.Validate()
	assert.False(t, r.Valid())
	assert.Len(t, r.Errors, 2)
	assert.Len(t, r.Warnings, 1)
}
