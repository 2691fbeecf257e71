package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gassorg/wiz-sarif-action-ingest/internal/converter"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/sarif"
)

var (
	flagInput         string
	flagOutput        string
	flagInputDir      string
	flagOutputDir     string
	flagIntegrationID string
	flagRepoName      string
	flagRepoURL       string
	flagBranch        string
	flagMinLevel      string
	flagConcurrency   int
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert SARIF files to Wiz vulnerability-findings documents",
	Long: `Convert a single SARIF file or a directory of SARIF files into Wiz
vulnerability-findings documents.

Examples:
  # Convert single file
  sarif2wiz convert --input scan.sarif --output scan.wiz.json

  # Batch convert directory
  sarif2wiz convert --input-dir ./results --output-dir ./wiz-results

  # With repository information (creates repositoryBranch assets)
  sarif2wiz convert --input scan.sarif --output scan.wiz.json \
    --repository-name my-repo --repository-url https://github.com/org/my-repo`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&flagInput, "input", "", "Path to single SARIF input file")
	convertCmd.Flags().StringVar(&flagOutput, "output", "", "Path to findings output file")
	convertCmd.Flags().StringVar(&flagInputDir, "input-dir", "", "Directory containing SARIF files")
	convertCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Directory for findings output files")
	convertCmd.Flags().StringVar(&flagIntegrationID, "integration-id", "", "Integration ID for the output document (env: SARIF2WIZ_INTEGRATION_ID)")
	convertCmd.Flags().StringVar(&flagRepoName, "repository-name", "", "Repository name for repositoryBranch asset type")
	convertCmd.Flags().StringVar(&flagRepoURL, "repository-url", "", "Repository URL for repositoryBranch asset type")
	convertCmd.Flags().StringVar(&flagBranch, "branch", "", "Branch name for repositoryBranch asset type (default: main)")
	convertCmd.Flags().StringVar(&flagMinLevel, "min-level", "", "Drop results below this SARIF level: none, note, warning, error")
	convertCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Concurrent file conversions in directory mode (env: SARIF2WIZ_CONCURRENCY)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	applyConvertFlags()

	if err := validateConvertArgs(); err != nil {
		return err
	}

	proc, err := buildProcessor()
	if err != nil {
		return err
	}

	if flagInput != "" {
		return proc.ProcessFile(flagInput, flagOutput)
	}

	succeeded, attempted, err := proc.ProcessDirectory(flagInputDir, flagOutputDir)
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d/%d files\n", succeeded, attempted)
	if succeeded == 0 && attempted > 0 {
		return errors.New("no files converted successfully")
	}
	return nil
}

func applyConvertFlags() {
	if flagIntegrationID != "" {
		cfg.Convert.IntegrationID = flagIntegrationID
	}
	if flagRepoName != "" {
		cfg.Convert.RepositoryName = flagRepoName
	}
	if flagRepoURL != "" {
		cfg.Convert.RepositoryURL = flagRepoURL
	}
	if flagBranch != "" {
		cfg.Convert.BranchName = flagBranch
	}
	if flagMinLevel != "" {
		cfg.Convert.MinLevel = flagMinLevel
	}
	if flagConcurrency > 0 {
		cfg.Batch.Concurrency = flagConcurrency
	}
}

func validateConvertArgs() error {
	if flagInput != "" && flagInputDir != "" {
		return errors.New("cannot specify both --input and --input-dir")
	}
	if flagInput == "" && flagInputDir == "" {
		return errors.New("must specify either --input or --input-dir")
	}
	if flagInput != "" && flagOutput == "" {
		return errors.New("--output required when using --input")
	}
	if flagInputDir != "" && flagOutputDir == "" {
		return errors.New("--output-dir required when using --input-dir")
	}
	if (cfg.Convert.RepositoryName == "") != (cfg.Convert.RepositoryURL == "") {
		return errors.New("both --repository-name and --repository-url must be specified together")
	}
	return nil
}

func buildProcessor() (*converter.Processor, error) {
	engine, err := loadEngine()
	if err != nil {
		return nil, err
	}

	input, output, err := loadValidators()
	if err != nil {
		return nil, err
	}

	conv := converter.New(input, output, engine, converter.Options{
		IntegrationID:  cfg.Convert.IntegrationID,
		RepositoryName: cfg.Convert.RepositoryName,
		RepositoryURL:  cfg.Convert.RepositoryURL,
		BranchName:     cfg.Convert.BranchName,
	}, log)

	parser := sarif.NewParser(&sarif.Options{
		MinLevel: sarif.Level(cfg.Convert.MinLevel),
	})

	return converter.NewProcessor(conv, parser, log, cfg.Batch.Concurrency), nil
}
