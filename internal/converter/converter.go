// Package converter turns parsed SARIF logs into Wiz vulnerability-findings
// documents: per-run data sources, results grouped into assets by artifact
// URI, and findings mapped through the configured field mappings. Schema
// validation of both ends is delegated to a validator collaborator.
package converter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gassorg/wiz-sarif-action-ingest/pkg/logger"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/mapping"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/sarif"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

// Mapping section names the orchestrator consumes.
const (
	SectionFindingLevel    = "finding_level"
	SectionTargetComponent = "target_component"
	SectionOptionalFields  = "optional_fields"
)

// DefaultDetectionSource tags findings as third-party scanner output.
const DefaultDetectionSource = "ThirdPartyAgent"

// DocumentValidator validates a document against a schema and reports the
// violation when it fails.
type DocumentValidator interface {
	Validate(doc any, label string) error
}

// Options configures a Converter.
type Options struct {
	// IntegrationID identifies the ingestion integration.
	IntegrationID string

	// RepositoryName and RepositoryURL, when both set, switch asset details
	// to the repositoryBranch variant for the whole conversion.
	RepositoryName string
	RepositoryURL  string

	// BranchName used for repositoryBranch assets (default "main").
	BranchName string

	// Now supplies timestamps; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Converter converts SARIF logs to Wiz vulnerability-findings documents.
// Each Convert call builds its own output state, so a single Converter is
// safe for concurrent conversions as long as the mapping configuration is
// not mutated at the same time.
type Converter struct {
	input  DocumentValidator
	output DocumentValidator
	engine *mapping.Engine
	opts   Options
	log    *logger.Logger
}

// New creates a Converter. input and output validate the SARIF document and
// the assembled findings document respectively.
func New(input, output DocumentValidator, engine *mapping.Engine, opts Options, log *logger.Logger) *Converter {
	if opts.IntegrationID == "" {
		opts.IntegrationID = "sarif-integration"
	}
	if opts.BranchName == "" {
		opts.BranchName = "main"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Converter{
		input:  input,
		output: output,
		engine: engine,
		opts:   opts,
		log:    log,
	}
}

// Convert validates the SARIF input, converts every run with results into a
// data source, and validates the assembled document before returning it.
// A validation failure on either side aborts with no document.
func (c *Converter) Convert(log *sarif.Log) (*wiz.Document, error) {
	if err := c.input.Validate(log, "SARIF input"); err != nil {
		return nil, err
	}

	doc := &wiz.Document{
		IntegrationID: c.opts.IntegrationID,
		DataSources:   []wiz.DataSource{},
	}

	for runIdx := range log.Runs {
		ds, ok := c.convertRun(&log.Runs[runIdx], runIdx)
		if ok {
			doc.DataSources = append(doc.DataSources, ds)
		}
	}

	if err := c.output.Validate(doc, "findings output"); err != nil {
		return nil, err
	}

	return doc, nil
}

// convertRun converts one SARIF run. Runs without results are dropped; no
// empty data source is emitted for them.
func (c *Converter) convertRun(run *sarif.Run, runIdx int) (wiz.DataSource, bool) {
	if len(run.Results) == 0 {
		c.log.Debug("run has no results", "run", runIdx)
		return wiz.DataSource{}, false
	}

	toolName := run.ToolName("unknown-tool")
	now := wiz.Timestamp(c.opts.Now())

	ds := wiz.DataSource{
		ID:           fmt.Sprintf("%s-run-%d", toolName, runIdx),
		AnalysisDate: now,
	}

	// Group results into assets keyed by artifact URI. Insertion order is
	// first-seen order of the key; the key itself is not persisted.
	var order []string
	assets := make(map[string]*wiz.Asset)

	for resultIdx := range run.Results {
		result := &run.Results[resultIdx]

		assetID := result.ArtifactURI()
		if assetID == "" {
			assetID = fmt.Sprintf("unknown-%d", resultIdx)
		}

		asset, ok := assets[assetID]
		if !ok {
			asset = &wiz.Asset{
				AnalysisDate:          now,
				Details:               c.assetDetails(assetID, now),
				VulnerabilityFindings: []wiz.Finding{},
			}
			assets[assetID] = asset
			order = append(order, assetID)
		}

		asset.VulnerabilityFindings = append(asset.VulnerabilityFindings, c.buildFinding(result, resultIdx))
	}

	ds.Assets = make([]wiz.Asset, 0, len(order))
	for _, key := range order {
		ds.Assets = append(ds.Assets, *assets[key])
	}

	return ds, true
}

// assetDetails builds the details variant for a new asset. The variant is
// decided by whether repository metadata was supplied and stays the same for
// the whole conversion.
func (c *Converter) assetDetails(assetID, firstSeen string) wiz.AssetDetails {
	if c.opts.RepositoryName != "" && c.opts.RepositoryURL != "" {
		return wiz.AssetDetails{
			RepositoryBranch: &wiz.RepositoryBranch{
				AssetID:    assetID,
				AssetName:  assetID,
				BranchName: c.opts.BranchName,
				Repository: wiz.Repository{
					Name: c.opts.RepositoryName,
					URL:  c.opts.RepositoryURL,
				},
				VCS:       "GitHub",
				FirstSeen: firstSeen,
			},
		}
	}

	return wiz.AssetDetails{
		VirtualMachine: &wiz.VirtualMachine{
			AssetID:   assetID,
			Name:      assetID,
			Hostname:  assetID,
			FirstSeen: firstSeen,
		},
	}
}

// buildFinding maps one SARIF result to a finding through the configured
// mapping sections, then applies the guarantees the mapping cannot express:
// the fixed severity lookup, a name fallback, the detection-source tag, and
// the original-object passthrough.
func (c *Converter) buildFinding(result *sarif.Result, resultIdx int) wiz.Finding {
	out := make(map[string]any)
	c.engine.ApplySectionInto(out, SectionFindingLevel, result.Raw)
	c.engine.ApplySectionInto(out, SectionTargetComponent, result.Raw)
	c.engine.ApplySectionInto(out, SectionOptionalFields, result.Raw)

	finding := decodeFinding(out)

	if finding.Name == "" {
		if result.RuleID != "" {
			finding.Name = result.RuleID
		} else {
			finding.Name = fmt.Sprintf("rule-%d", resultIdx)
		}
	}
	if finding.ID == "" && result.RuleID != "" {
		finding.ID = result.RuleID
	}
	if finding.ExternalDetectionSource == "" {
		finding.ExternalDetectionSource = DefaultDetectionSource
	}

	// Severity is always the fixed level lookup, regardless of what the
	// configurable transform produced.
	finding.Severity = wiz.SeverityFromLevel(string(result.Level))

	if len(result.Locations) > 0 {
		if finding.TargetComponent == nil {
			if uri := result.ArtifactURI(); uri != "" {
				finding.TargetComponent = map[string]any{
					"library": map[string]any{"filePath": uri},
				}
			}
		}
		finding.OriginalObject = map[string]any{
			"locations": result.Raw["locations"],
			"ruleIndex": result.RuleIndex,
		}
	}

	return finding
}

// decodeFinding converts the nested map the engine assembled into the typed
// finding. The JSON round trip keeps the mapping configuration in charge of
// field naming; anything it writes outside the known fields is dropped here
// rather than erroring.
func decodeFinding(out map[string]any) wiz.Finding {
	var finding wiz.Finding

	data, err := json.Marshal(out)
	if err != nil {
		return finding
	}
	_ = json.Unmarshal(data, &finding)

	return finding
}
