package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gassorg/wiz-sarif-action-ingest/internal/config"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/logger"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/mapping"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/schema"
)

var (
	version string

	// Global flags
	flagVerbose     bool
	flagLogFormat   string
	flagMappingPath string
	flagSARIFSchema string
	flagWizSchema   string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sarif2wiz",
	Short: "Convert SARIF security findings to the Wiz ingestion schema",
	Long: `sarif2wiz converts SARIF format security-scan findings into the Wiz
vulnerability-findings ingestion schema, validating both sides against
their JSON Schemas, and optionally uploads the result to the ingestion
API.

Field extraction is driven by a declarative mapping configuration; use
"sarif2wiz mappings" to inspect it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		if flagMappingPath != "" {
			cfg.Convert.MappingPath = flagMappingPath
		}
		if flagSARIFSchema != "" {
			cfg.Convert.SARIFSchemaPath = flagSARIFSchema
		}
		if flagWizSchema != "" {
			cfg.Convert.WizSchemaPath = flagWizSchema
		}

		level := cfg.Log.Level
		if flagVerbose {
			level = "debug"
		}
		format := cfg.Log.Format
		if flagLogFormat != "" {
			format = flagLogFormat
		}
		log = logger.New(logger.Config{Level: level, Format: format})
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text, json (env: SARIF2WIZ_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&flagMappingPath, "mapping", "", "Path to field mapping configuration (env: SARIF2WIZ_MAPPING_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagSARIFSchema, "sarif-schema", "", "Path to SARIF JSON Schema (env: SARIF2WIZ_SARIF_SCHEMA)")
	rootCmd.PersistentFlags().StringVar(&flagWizSchema, "wiz-schema", "", "Path to Wiz findings JSON Schema (env: SARIF2WIZ_WIZ_SCHEMA)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(mappingsCmd)
}

// loadEngine loads the mapping configuration into an engine.
func loadEngine() (*mapping.Engine, error) {
	mcfg, err := mapping.Load(cfg.Convert.MappingPath)
	if err != nil {
		return nil, err
	}
	return mapping.NewEngine(mcfg), nil
}

// loadValidators compiles the input and output schema validators.
func loadValidators() (input, output *schema.Validator, err error) {
	input, err = schema.NewValidator(cfg.Convert.SARIFSchemaPath)
	if err != nil {
		return nil, nil, err
	}
	output, err = schema.NewValidator(cfg.Convert.WizSchemaPath)
	if err != nil {
		return nil, nil, err
	}
	return input, output, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sarif2wiz version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
