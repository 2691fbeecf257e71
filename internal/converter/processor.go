package converter

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gassorg/wiz-sarif-action-ingest/internal/metrics"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/logger"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/sarif"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

// OutputSuffix is appended (replacing the extension) to converted files.
const OutputSuffix = ".wiz.json"

// Processor drives per-file conversions: parse, convert, write. Directory
// processing runs files concurrently; one failing file never aborts the
// rest of the batch.
type Processor struct {
	conv        *Converter
	parser      *sarif.Parser
	log         *logger.Logger
	concurrency int
}

// NewProcessor creates a Processor. concurrency bounds directory processing;
// values below 1 fall back to serial.
func NewProcessor(conv *Converter, parser *sarif.Parser, log *logger.Logger, concurrency int) *Processor {
	if parser == nil {
		parser = sarif.NewParser(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		conv:        conv,
		parser:      parser,
		log:         log,
		concurrency: concurrency,
	}
}

// ProcessFile converts a single SARIF file and writes the findings document
// to outPath, creating parent directories as needed.
func (p *Processor) ProcessFile(inPath, outPath string) error {
	start := time.Now()

	doc, err := p.convertFile(inPath)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("failure").Inc()
		return err
	}

	if err := writeDocument(outPath, doc); err != nil {
		metrics.ConversionsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.ConversionsTotal.WithLabelValues("success").Inc()
	metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	recordDocumentMetrics(doc)

	p.log.Info("converted", "input", inPath, "output", outPath, "data_sources", len(doc.DataSources))
	return nil
}

func (p *Processor) convertFile(inPath string) (*wiz.Document, error) {
	log, err := p.parser.ParseFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", inPath, err)
	}
	doc, err := p.conv.Convert(log)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", inPath, err)
	}
	return doc, nil
}

// ProcessDirectory converts every SARIF file under inDir, mirroring the
// directory layout under outDir. Returns the number of successfully
// converted files and the number attempted. Per-file failures are logged
// and counted, never propagated.
func (p *Processor) ProcessDirectory(inDir, outDir string) (succeeded, attempted int, err error) {
	files, err := collectInputs(inDir)
	if err != nil {
		return 0, 0, err
	}
	if len(files) == 0 {
		p.log.Warn("no SARIF files found", "dir", inDir)
		return 0, 0, nil
	}

	var successCount atomic.Int64

	// Workers swallow their own errors: the batch contract is that one bad
	// file only costs that file. The group is used for its bounded
	// concurrency, not for error propagation.
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, inPath := range files {
		inPath := inPath
		rel, relErr := filepath.Rel(inDir, inPath)
		if relErr != nil {
			rel = filepath.Base(inPath)
		}
		outPath := filepath.Join(outDir, outputName(rel))

		g.Go(func() error {
			if fileErr := p.ProcessFile(inPath, outPath); fileErr != nil {
				p.log.WithError(fileErr).Error("failed to process file", "input", inPath)
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	succeeded = int(successCount.Load())
	p.log.Info("batch complete", "succeeded", succeeded, "attempted", len(files))
	return succeeded, len(files), nil
}

// collectInputs gathers .sarif and .json files under dir, skipping dotfiles
// and files that already look like converter output.
func collectInputs(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.HasSuffix(d.Name(), OutputSuffix) {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".sarif", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input directory: %w", err)
	}

	return files, nil
}

// outputName swaps the input extension for the converter output suffix.
func outputName(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + OutputSuffix
}

func writeDocument(path string, doc *wiz.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func recordDocumentMetrics(doc *wiz.Document) {
	for _, ds := range doc.DataSources {
		metrics.DataSourcesEmitted.Inc()
		for _, asset := range ds.Assets {
			for _, finding := range asset.VulnerabilityFindings {
				metrics.FindingsConverted.WithLabelValues(string(finding.Severity)).Inc()
			}
		}
	}
}
