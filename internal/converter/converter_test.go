package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gassorg/wiz-sarif-action-ingest/pkg/mapping"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/sarif"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

// okValidator accepts every document.
type okValidator struct{}

func (okValidator) Validate(doc any, label string) error { return nil }

// failValidator rejects documents whose label matches.
type failValidator struct {
	label string
	err   error
}

func (v failValidator) Validate(doc any, label string) error {
	if label == v.label {
		return v.err
	}
	return nil
}

const testMappings = `{
  "version": "1.0",
  "sections": {
    "finding_level": {
      "mappings": [
        {"wiz_field": "name", "source": "sarif_result", "sarif_path": "ruleId"},
        {"wiz_field": "id", "source": "sarif_result", "sarif_path": "ruleId"},
        {"wiz_field": "description", "source": "sarif_result", "sarif_path": "message.text", "default": ""},
        {"wiz_field": "severity", "source": "sarif_result", "sarif_path": "level", "transform": "map_severity", "default": "warning"},
        {"wiz_field": "externalDetectionSource", "source": "constant", "value": "ThirdPartyAgent"}
      ]
    },
    "target_component": {
      "mappings": [
        {"wiz_field": "targetComponent.library.filePath", "source": "sarif_result", "sarif_path": "locations[0].physicalLocation.artifactLocation.uri"}
      ]
    },
    "optional_fields": {
      "mappings": [
        {"wiz_field": "fixedVersion", "source": "sarif_result", "sarif_path": "properties.fixedVersion", "transform": "clean_fixed_version"},
        {"wiz_field": "remediation", "source": "sarif_result", "sarif_path": "properties.fixedVersion", "transform": "format_remediation"}
      ]
    }
  },
  "transformations": {
    "map_severity": {"mappings": {"none": "None", "note": "Low", "warning": "Medium", "error": "High"}},
    "clean_fixed_version": {"returns_empty_if": "no fix available"},
    "format_remediation": {"template": "Update to version: {value}"}
  }
}`

func testEngine(t *testing.T) *mapping.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(testMappings), 0o644))

	cfg, err := mapping.Load(path)
	require.NoError(t, err)
	return mapping.NewEngine(cfg)
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
}

func newTestConverter(t *testing.T, opts Options) *Converter {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return New(okValidator{}, okValidator{}, testEngine(t), opts, nil)
}

func parseLog(t *testing.T, raw string) *sarif.Log {
	t.Helper()
	log, err := sarif.NewParser(nil).ParseBytes([]byte(raw))
	require.NoError(t, err)
	return log
}

const threeLevelSARIF = `{
	"version": "2.1.0",
	"runs": [
		{
			"tool": {"driver": {"name": "TestScanner"}},
			"results": [
				{
					"ruleId": "CVE-2024-0001",
					"level": "error",
					"message": {"text": "critical dep"},
					"locations": [{"physicalLocation": {"artifactLocation": {"uri": "go.sum"}}}],
					"properties": {"fixedVersion": "2.0.0"}
				},
				{
					"ruleId": "CVE-2024-0002",
					"level": "warning",
					"message": {"text": "suspicious dep"},
					"locations": [{"physicalLocation": {"artifactLocation": {"uri": "package-lock.json"}}}],
					"properties": {"fixedVersion": "no fix available"}
				},
				{
					"ruleId": "CVE-2024-0003",
					"level": "note",
					"message": {"text": "minor issue"},
					"locations": [{"physicalLocation": {"artifactLocation": {"uri": "requirements.txt"}}}]
				}
			]
		}
	]
}`

func TestConvertEndToEnd(t *testing.T) {
	c := newTestConverter(t, Options{IntegrationID: "ci-scanner"})

	doc, err := c.Convert(parseLog(t, threeLevelSARIF))
	require.NoError(t, err)

	assert.Equal(t, "ci-scanner", doc.IntegrationID)
	require.Len(t, doc.DataSources, 1)

	ds := doc.DataSources[0]
	assert.Equal(t, "TestScanner-run-0", ds.ID)
	assert.Equal(t, "2026-08-29T12:00:00Z", ds.AnalysisDate)
	require.Len(t, ds.Assets, 3)

	// One asset per distinct artifact URI, one finding each, in result order.
	wantSeverities := []wiz.Severity{wiz.SeverityHigh, wiz.SeverityMedium, wiz.SeverityLow}
	wantAssets := []string{"go.sum", "package-lock.json", "requirements.txt"}
	for i, asset := range ds.Assets {
		require.NoError(t, asset.Details.Validate())
		assert.Equal(t, "virtualMachine", asset.Details.Variant())
		assert.Equal(t, wantAssets[i], asset.Details.VirtualMachine.AssetID)
		require.Len(t, asset.VulnerabilityFindings, 1)
		assert.Equal(t, wantSeverities[i], asset.VulnerabilityFindings[0].Severity)
	}

	first := ds.Assets[0].VulnerabilityFindings[0]
	assert.Equal(t, "CVE-2024-0001", first.Name)
	assert.Equal(t, "CVE-2024-0001", first.ID)
	assert.Equal(t, "critical dep", first.Description)
	assert.Equal(t, DefaultDetectionSource, first.ExternalDetectionSource)
	assert.Equal(t, "2.0.0", first.FixedVersion)
	assert.Equal(t, "Update to version: 2.0.0", first.Remediation)
	require.NotNil(t, first.TargetComponent)
	lib := first.TargetComponent["library"].(map[string]any)
	assert.Equal(t, "go.sum", lib["filePath"])
	require.NotNil(t, first.OriginalObject)
	assert.Contains(t, first.OriginalObject, "locations")

	// Placeholder fixed versions are blanked, so no remediation either.
	second := ds.Assets[1].VulnerabilityFindings[0]
	assert.Empty(t, second.FixedVersion)
	assert.Empty(t, second.Remediation)
}

func TestConvertGroupsByArtifact(t *testing.T) {
	const raw = `{
		"version": "2.1.0",
		"runs": [
			{
				"tool": {"driver": {"name": "TestScanner"}},
				"results": [
					{"ruleId": "A1", "level": "error", "message": {"text": "a"},
					 "locations": [{"physicalLocation": {"artifactLocation": {"uri": "first.go"}}}]},
					{"ruleId": "B1", "level": "warning", "message": {"text": "b"},
					 "locations": [{"physicalLocation": {"artifactLocation": {"uri": "second.go"}}}]},
					{"ruleId": "A2", "level": "note", "message": {"text": "c"},
					 "locations": [{"physicalLocation": {"artifactLocation": {"uri": "first.go"}}}]}
				]
			}
		]
	}`

	c := newTestConverter(t, Options{})
	doc, err := c.Convert(parseLog(t, raw))
	require.NoError(t, err)

	require.Len(t, doc.DataSources, 1)
	assets := doc.DataSources[0].Assets
	require.Len(t, assets, 2)

	// First-seen order, findings appended in result order.
	assert.Equal(t, "first.go", assets[0].Details.VirtualMachine.AssetID)
	require.Len(t, assets[0].VulnerabilityFindings, 2)
	assert.Equal(t, "A1", assets[0].VulnerabilityFindings[0].Name)
	assert.Equal(t, "A2", assets[0].VulnerabilityFindings[1].Name)

	assert.Equal(t, "second.go", assets[1].Details.VirtualMachine.AssetID)
	require.Len(t, assets[1].VulnerabilityFindings, 1)
}

func TestConvertDropsEmptyRuns(t *testing.T) {
	const raw = `{
		"version": "2.1.0",
		"runs": [
			{"tool": {"driver": {"name": "EmptyScanner"}}, "results": []},
			{
				"tool": {"driver": {"name": "RealScanner"}},
				"results": [{"ruleId": "R1", "level": "error", "message": {"text": "x"}}]
			}
		]
	}`

	c := newTestConverter(t, Options{})
	doc, err := c.Convert(parseLog(t, raw))
	require.NoError(t, err)

	require.Len(t, doc.DataSources, 1)
	// The data source ID keeps the original run index.
	assert.Equal(t, "RealScanner-run-1", doc.DataSources[0].ID)
}

func TestConvertRepositoryBranchVariant(t *testing.T) {
	c := newTestConverter(t, Options{
		RepositoryName: "acme/webapp",
		RepositoryURL:  "https://github.com/acme/webapp",
		BranchName:     "release",
	})

	doc, err := c.Convert(parseLog(t, threeLevelSARIF))
	require.NoError(t, err)

	for _, asset := range doc.DataSources[0].Assets {
		require.Equal(t, "repositoryBranch", asset.Details.Variant())
		rb := asset.Details.RepositoryBranch
		assert.Equal(t, "acme/webapp", rb.Repository.Name)
		assert.Equal(t, "https://github.com/acme/webapp", rb.Repository.URL)
		assert.Equal(t, "release", rb.BranchName)
		assert.Equal(t, "GitHub", rb.VCS)
	}
}

func TestConvertBranchDefaultsToMain(t *testing.T) {
	c := newTestConverter(t, Options{
		RepositoryName: "acme/webapp",
		RepositoryURL:  "https://github.com/acme/webapp",
	})

	doc, err := c.Convert(parseLog(t, threeLevelSARIF))
	require.NoError(t, err)
	assert.Equal(t, "main", doc.DataSources[0].Assets[0].Details.RepositoryBranch.BranchName)
}

func TestConvertUnknownAssetFallback(t *testing.T) {
	const raw = `{
		"version": "2.1.0",
		"runs": [
			{
				"tool": {"driver": {"name": "TestScanner"}},
				"results": [
					{"ruleId": "R1", "level": "error", "message": {"text": "no location"}},
					{"level": "warning", "message": {"text": "anonymous"}}
				]
			}
		]
	}`

	c := newTestConverter(t, Options{})
	doc, err := c.Convert(parseLog(t, raw))
	require.NoError(t, err)

	assets := doc.DataSources[0].Assets
	require.Len(t, assets, 2)
	assert.Equal(t, "unknown-0", assets[0].Details.VirtualMachine.AssetID)
	assert.Equal(t, "unknown-1", assets[1].Details.VirtualMachine.AssetID)

	// A result with neither mapping value nor rule ID gets a positional name.
	second := assets[1].VulnerabilityFindings[0]
	assert.Equal(t, "rule-1", second.Name)
	assert.Empty(t, second.ID)
	// No locations means no original object or target component either.
	assert.Nil(t, second.OriginalObject)
	assert.Nil(t, second.TargetComponent)
}

func TestConvertValidationFailures(t *testing.T) {
	errInput := errors.New("bad input")
	errOutput := errors.New("bad output")

	t.Run("input validation aborts", func(t *testing.T) {
		c := New(failValidator{label: "SARIF input", err: errInput}, okValidator{},
			testEngine(t), Options{Now: fixedNow}, nil)
		doc, err := c.Convert(parseLog(t, threeLevelSARIF))
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, errInput)
	})

	t.Run("output validation aborts", func(t *testing.T) {
		c := New(okValidator{}, failValidator{label: "findings output", err: errOutput},
			testEngine(t), Options{Now: fixedNow}, nil)
		doc, err := c.Convert(parseLog(t, threeLevelSARIF))
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, errOutput)
	})
}

func TestConvertSeverityIgnoresMappingOverride(t *testing.T) {
	// Even with a result level the configurable transform would map
	// differently, the finding severity comes from the fixed lookup.
	const raw = `{
		"version": "2.1.0",
		"runs": [
			{
				"tool": {"driver": {"name": "TestScanner"}},
				"results": [{"ruleId": "R1", "message": {"text": "no level"}}]
			}
		]
	}`

	c := newTestConverter(t, Options{})
	doc, err := c.Convert(parseLog(t, raw))
	require.NoError(t, err)

	finding := doc.DataSources[0].Assets[0].VulnerabilityFindings[0]
	assert.Equal(t, wiz.SeverityMedium, finding.Severity)
}

func TestConvertDefaultIntegrationID(t *testing.T) {
	c := newTestConverter(t, Options{})
	doc, err := c.Convert(parseLog(t, threeLevelSARIF))
	require.NoError(t, err)
	assert.Equal(t, "sarif-integration", doc.IntegrationID)
}
