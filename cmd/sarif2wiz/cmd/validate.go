package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gassorg/wiz-sarif-action-ingest/pkg/schema"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

var validateCmd = &cobra.Command{
	Use:   "validate <findings-file>",
	Short: "Validate a converted findings document against the output schema",
	Long: `Validate a converted findings document against the Wiz ingestion schema
and print its structure.

Example:
  sarif2wiz validate ./wiz-results/scan.wiz.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read findings file: %w", err)
	}

	var doc wiz.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	validator, err := schema.NewValidator(cfg.Convert.WizSchemaPath)
	if err != nil {
		return err
	}

	if err := validator.Validate(&doc, "findings document"); err != nil {
		return err
	}

	fmt.Printf("%s is valid\n\n", path)
	printStructure(&doc)
	return nil
}

func printStructure(doc *wiz.Document) {
	fmt.Println("Document structure:")
	fmt.Printf("  Integration ID: %s\n", doc.IntegrationID)
	fmt.Printf("  Data Sources:   %d\n", len(doc.DataSources))

	for dsIdx, ds := range doc.DataSources {
		fmt.Printf("    [%d] ID: %s\n", dsIdx, ds.ID)
		fmt.Printf("        Assets: %d\n", len(ds.Assets))
		for assetIdx, asset := range ds.Assets {
			fmt.Printf("          [%d] Type: %s, Findings: %d\n",
				assetIdx, asset.Details.Variant(), len(asset.VulnerabilityFindings))
		}
	}
}
