package commands

import (
	"fmt"

	"github.com/incidentlab/responder/internal/mockdata"
	"github.com/spf13/cobra"
)

var gendataCmd = &cobra.Command{
	Use:   "gendata",
	Short: "Write the demo incident fixture tree",
	Long: `Write the complete fixture tree for the demo incident: topology,
scenario, four log slices and three metric slices recording a database
connection pool exhaustion in production.

The generated tree is the input for 'responder diagnose' and the MCP
server. Existing files are overwritten.`,
	RunE: runGendata,
}

var gendataDir string

func init() {
	gendataCmd.Flags().StringVar(&gendataDir, "dir", "mock-data",
		"Directory to write the fixture tree into")
}

func runGendata(cmd *cobra.Command, args []string) error {
	if err := mockdata.WriteDemoData(gendataDir); err != nil {
		return fmt.Errorf("failed to write fixtures: %w", err)
	}

	fmt.Printf("Wrote demo fixtures for %s to %s\n", mockdata.DemoIncidentID, gendataDir)
	return nil
}
