// Package wiz defines the vulnerability-findings ingestion document shape
// accepted by the Wiz platform. The document is a strict ownership tree:
// Document -> DataSource -> Asset -> Finding, with no sharing between
// branches.
package wiz

import (
	"errors"
	"strings"
	"time"
)

// Severity is the normalized finding severity, ordered
// None < Low < Medium < High < Critical.
type Severity string

const (
	SeverityNone     Severity = "None"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// IsValid checks if the severity is one of the known values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the position of the severity in the ordered scale, with
// unknown severities ranked as Medium.
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 2
	}
}

// levelSeverity is the fixed SARIF level lookup. Absence of a level must
// never block ingestion, so anything unrecognized maps to Medium.
var levelSeverity = map[string]Severity{
	"none":    SeverityNone,
	"note":    SeverityLow,
	"warning": SeverityMedium,
	"error":   SeverityHigh,
}

// SeverityFromLevel maps a SARIF result level to a Severity. The lookup is
// case-insensitive and total: unrecognized or empty levels yield Medium.
func SeverityFromLevel(level string) Severity {
	if s, ok := levelSeverity[strings.ToLower(level)]; ok {
		return s
	}
	return SeverityMedium
}

// Document is the root ingestion payload.
type Document struct {
	IntegrationID string       `json:"integrationId"`
	DataSources   []DataSource `json:"dataSources"`
}

// DataSource holds one analysis run's worth of assets.
type DataSource struct {
	ID           string  `json:"id"`
	AnalysisDate string  `json:"analysisDate"`
	Assets       []Asset `json:"assets"`
}

// Asset is one scanned target (typically a file) with its findings.
type Asset struct {
	AnalysisDate          string       `json:"analysisDate"`
	Details               AssetDetails `json:"details"`
	VulnerabilityFindings []Finding    `json:"vulnerabilityFindings"`
}

// AssetDetails is a closed sum over the supported asset reference kinds.
// Exactly one member is set; which one is decided once per conversion run.
type AssetDetails struct {
	Endpoint         *Endpoint         `json:"endpoint,omitempty"`
	VirtualMachine   *VirtualMachine   `json:"virtualMachine,omitempty"`
	RepositoryBranch *RepositoryBranch `json:"repositoryBranch,omitempty"`
}

// ErrAmbiguousDetails reports asset details with zero or multiple variants set.
var ErrAmbiguousDetails = errors.New("asset details must carry exactly one variant")

// Validate enforces the exactly-one-variant invariant.
func (d AssetDetails) Validate() error {
	n := 0
	if d.Endpoint != nil {
		n++
	}
	if d.VirtualMachine != nil {
		n++
	}
	if d.RepositoryBranch != nil {
		n++
	}
	if n != 1 {
		return ErrAmbiguousDetails
	}
	return nil
}

// Variant names the populated details member, or "" when none is set.
func (d AssetDetails) Variant() string {
	switch {
	case d.Endpoint != nil:
		return "endpoint"
	case d.VirtualMachine != nil:
		return "virtualMachine"
	case d.RepositoryBranch != nil:
		return "repositoryBranch"
	default:
		return ""
	}
}

// Endpoint references a network endpoint asset.
type Endpoint struct {
	AssetID   string `json:"assetId"`
	AssetName string `json:"assetName"`
	URL       string `json:"url,omitempty"`
	FirstSeen string `json:"firstSeen"`
}

// VirtualMachine references a host-like asset. It is the general-purpose
// fallback variant when no richer context is available.
type VirtualMachine struct {
	AssetID   string `json:"assetId"`
	Name      string `json:"name"`
	Hostname  string `json:"hostname"`
	FirstSeen string `json:"firstSeen"`
}

// Repository identifies the source repository of a repository-branch asset.
type Repository struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RepositoryBranch references a file on a branch of a source repository.
type RepositoryBranch struct {
	AssetID    string     `json:"assetId"`
	AssetName  string     `json:"assetName"`
	BranchName string     `json:"branchName"`
	Repository Repository `json:"repository"`
	VCS        string     `json:"vcs"`
	FirstSeen  string     `json:"firstSeen"`
}

// Finding is one normalized vulnerability finding. OriginalObject preserves
// unmapped source data for audit and debugging.
type Finding struct {
	Name                    string         `json:"name"`
	Description             string         `json:"description"`
	Severity                Severity       `json:"severity"`
	ExternalDetectionSource string         `json:"externalDetectionSource"`
	ID                      string         `json:"id,omitempty"`
	TargetComponent         map[string]any `json:"targetComponent,omitempty"`
	Remediation             string         `json:"remediation,omitempty"`
	FixedVersion            string         `json:"fixedVersion,omitempty"`
	OriginalObject          map[string]any `json:"originalObject,omitempty"`
}

// Timestamp renders t as the ISO-8601 UTC form the ingestion schema expects
// (seconds precision, "Z" suffix).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
