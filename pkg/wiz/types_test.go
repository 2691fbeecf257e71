package wiz

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityFromLevel(t *testing.T) {
	tests := []struct {
		level string
		want  Severity
	}{
		{"none", SeverityNone},
		{"note", SeverityLow},
		{"warning", SeverityMedium},
		{"error", SeverityHigh},
		{"ERROR", SeverityHigh},
		{"Warning", SeverityMedium},
		{"", SeverityMedium},
		{"garbage", SeverityMedium},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFromLevel(tt.level), "level %q", tt.level)
	}
}

func TestSeverityRank(t *testing.T) {
	assert.True(t, SeverityNone.Rank() < SeverityLow.Rank())
	assert.True(t, SeverityLow.Rank() < SeverityMedium.Rank())
	assert.True(t, SeverityMedium.Rank() < SeverityHigh.Rank())
	assert.True(t, SeverityHigh.Rank() < SeverityCritical.Rank())
	assert.Equal(t, SeverityMedium.Rank(), Severity("weird").Rank())
}

func TestSeverityIsValid(t *testing.T) {
	for _, s := range []Severity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, Severity("medium").IsValid())
	assert.False(t, Severity("").IsValid())
}

func TestAssetDetailsValidate(t *testing.T) {
	assert.ErrorIs(t, AssetDetails{}.Validate(), ErrAmbiguousDetails)

	one := AssetDetails{VirtualMachine: &VirtualMachine{AssetID: "a"}}
	assert.NoError(t, one.Validate())
	assert.Equal(t, "virtualMachine", one.Variant())

	two := AssetDetails{
		VirtualMachine:   &VirtualMachine{AssetID: "a"},
		RepositoryBranch: &RepositoryBranch{AssetID: "b"},
	}
	assert.ErrorIs(t, two.Validate(), ErrAmbiguousDetails)
}

func TestAssetDetailsJSONOmitsAbsentVariants(t *testing.T) {
	d := AssetDetails{RepositoryBranch: &RepositoryBranch{
		AssetID:    "id",
		AssetName:  "main.go",
		BranchName: "main",
		Repository: Repository{Name: "repo", URL: "https://example.com/repo"},
		VCS:        "GitHub",
		FirstSeen:  "2026-08-29T00:00:00Z",
	}}

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 1)
	assert.Contains(t, raw, "repositoryBranch")
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := Timestamp(time.Date(2026, 8, 29, 14, 30, 5, 123456789, loc))
	assert.Equal(t, "2026-08-29T12:30:05Z", ts)
}
