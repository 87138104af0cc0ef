package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/hazard-monitor/internal/engine"
)

var cycleCmd = &cobra.Command{
	Use:       "cycle <weather|seismic>",
	Short:     "Run one evaluation cycle immediately",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{engine.LoopWeather, engine.LoopSeismic},
	RunE:      runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	var report engine.CycleReport
	switch args[0] {
	case engine.LoopWeather:
		report, err = a.Engine.RunContinuousSignalCycle(cmd.Context())
	case engine.LoopSeismic:
		report, err = a.Engine.RunPointEventCycle(cmd.Context())
	}

	if output == "json" {
		if perr := printJSON(report); perr != nil {
			return perr
		}
	} else {
		fmt.Printf("%s cycle: %d locations, %d evaluated, %d opened, %d cleared, %d duplicates, %d failures\n",
			args[0], report.Locations, report.Evaluated, report.Opened, report.Cleared, report.Duplicates, report.Failures)
	}
	if err != nil {
		return fmt.Errorf("%s cycle: %w", args[0], err)
	}
	return nil
}
