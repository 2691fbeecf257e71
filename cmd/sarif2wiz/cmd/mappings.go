package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagEnableField  []string
	flagDisableField []string
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Show the active field mapping configuration",
	Long: `Show every enabled field mapping rule with its source and target.

Rules can be toggled for this invocation with --enable/--disable using
"<section>:<field>" (the mapping file itself is not modified):

  sarif2wiz mappings --enable optional_fields:remediation`,
	RunE: runMappings,
}

func init() {
	mappingsCmd.Flags().StringArrayVar(&flagEnableField, "enable", nil, "Enable a rule: <section>:<wiz-field>")
	mappingsCmd.Flags().StringArrayVar(&flagDisableField, "disable", nil, "Disable a rule: <section>:<wiz-field>")
}

func runMappings(cmd *cobra.Command, args []string) error {
	engine, err := loadEngine()
	if err != nil {
		return err
	}

	mcfg := engine.Config()
	for _, spec := range flagEnableField {
		section, field, err := splitFieldSpec(spec)
		if err != nil {
			return err
		}
		mcfg.SetEnabled(section, field, true)
	}
	for _, spec := range flagDisableField {
		section, field, err := splitFieldSpec(spec)
		if err != nil {
			return err
		}
		mcfg.SetEnabled(section, field, false)
	}

	if mcfg.Description != "" {
		fmt.Println(mcfg.Description)
	}
	fmt.Print(mcfg.Summary())
	return nil
}

func splitFieldSpec(spec string) (section, field string, err error) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			return spec[:i], spec[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid field spec %q, want <section>:<wiz-field>", spec)
}
