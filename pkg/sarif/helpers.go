package sarif

// ArtifactURI returns the artifact URI of the result's first location, or ""
// when the result carries no usable location.
func (r *Result) ArtifactURI() string {
	if len(r.Locations) == 0 {
		return ""
	}
	loc := r.Locations[0]
	if loc.PhysicalLocation == nil || loc.PhysicalLocation.ArtifactLocation == nil {
		return ""
	}
	return loc.PhysicalLocation.ArtifactLocation.URI
}

// ToolName returns the run's driver name, or fallback when the run does not
// name its tool.
func (r *Run) ToolName(fallback string) string {
	if r.Tool.Driver.Name != "" {
		return r.Tool.Driver.Name
	}
	return fallback
}

// Summary contains summarized statistics from a SARIF log.
type Summary struct {
	TotalResults int           `json:"totalResults"`
	ByLevel      map[Level]int `json:"byLevel"`
	Tools        []string      `json:"tools"`
	RunCount     int           `json:"runCount"`
}

// GetSummary returns a summary of the SARIF log.
func GetSummary(log *Log) Summary {
	summary := Summary{
		ByLevel:  make(map[Level]int),
		Tools:    make([]string, 0, len(log.Runs)),
		RunCount: len(log.Runs),
	}

	for _, run := range log.Runs {
		summary.Tools = append(summary.Tools, run.Tool.Driver.Name)
		summary.TotalResults += len(run.Results)

		for _, result := range run.Results {
			summary.ByLevel[result.Level]++
		}
	}

	return summary
}
