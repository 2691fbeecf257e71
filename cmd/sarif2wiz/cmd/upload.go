package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gassorg/wiz-sarif-action-ingest/internal/wizapi"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/schema"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

var (
	flagUploadFile   string
	flagAPIURL       string
	flagValidateOnly bool
	flagCheckStatus  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a converted findings document to the ingestion API",
	Long: `Upload a converted findings document to the ingestion API.

The document is validated against the output schema before upload.
Credentials come from WIZ_API_TOKEN, or WIZ_CLIENT_ID and
WIZ_CLIENT_SECRET for the OAuth client-credentials flow.

Examples:
  sarif2wiz upload --file ./wiz-results/scan.wiz.json
  sarif2wiz upload --file scan.wiz.json --validate-only
  sarif2wiz upload --check-status <upload-id>`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&flagUploadFile, "file", "", "Path to converted findings file")
	uploadCmd.Flags().StringVar(&flagAPIURL, "api-url", "", "Ingestion API base URL (env: WIZ_API_URL)")
	uploadCmd.Flags().BoolVar(&flagValidateOnly, "validate-only", false, "Only validate, don't upload")
	uploadCmd.Flags().StringVar(&flagCheckStatus, "check-status", "", "Check the status of a previous upload by ID")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}

	if flagCheckStatus != "" {
		return checkUploadStatus(cmd, flagCheckStatus)
	}

	if flagUploadFile == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(flagUploadFile)
	if err != nil {
		return fmt.Errorf("read findings file: %w", err)
	}

	var doc wiz.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", flagUploadFile, err)
	}

	// Never ship a document the API will reject.
	validator, err := schema.NewValidator(cfg.Convert.WizSchemaPath)
	if err != nil {
		return err
	}
	if err := validator.Validate(&doc, "findings document"); err != nil {
		return err
	}

	if flagValidateOnly {
		fmt.Printf("%s is valid (--validate-only, skipping upload)\n", flagUploadFile)
		return nil
	}

	client := newAPIClient()
	if err := client.Authenticate(cmd.Context()); err != nil {
		return err
	}

	uploadID, err := client.Upload(cmd.Context(), &doc)
	if err != nil {
		return err
	}

	fmt.Printf("Upload successful, ID: %s\n", uploadID)
	return nil
}

func checkUploadStatus(cmd *cobra.Command, uploadID string) error {
	client := newAPIClient()
	status, err := client.CheckStatus(cmd.Context(), uploadID)
	if err != nil {
		return err
	}

	fmt.Printf("Upload %s: %s\n", status.UploadID, status.Status)
	if status.Error != "" {
		fmt.Printf("  Error: %s\n", status.Error)
	}
	return nil
}

func newAPIClient() *wizapi.Client {
	return wizapi.NewClient(
		cfg.API.BaseURL,
		wizapi.Credentials{
			APIToken:     cfg.API.APIToken,
			ClientID:     cfg.API.ClientID,
			ClientSecret: cfg.API.ClientSecret,
		},
		wizapi.Options{
			Timeout:   cfg.API.Timeout,
			RateLimit: cfg.API.RateLimit,
			RateBurst: cfg.API.RateBurst,
		},
		log,
	)
}
