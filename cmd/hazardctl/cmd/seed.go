package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/hazard-monitor/internal/seed"
)

var seedDryRun bool

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load settings, disasters, locations and rules from YAML",
	Long: `Load a seed file. Disasters and locations are matched by name and
updated in place; rules are always added, so seeding the same file twice
duplicates its rules.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "validate the file without writing")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := seed.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}
	if seedDryRun {
		fmt.Printf("%s is valid\n", args[0])
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	sum, err := seed.Apply(cmd.Context(), a.DB, f)
	if err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}

	if output == "json" {
		return printJSON(sum)
	}
	fmt.Printf("settings: %d  disasters: %d  locations: %d  rules: %d\n",
		sum.Settings, sum.Disasters, sum.Locations, sum.Rules)
	return nil
}
