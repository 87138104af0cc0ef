package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	simLat   float64
	simLon   float64
	simMag   float64
	simPlace string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Inject synthetic events",
}

var simulateQuakeCmd = &cobra.Command{
	Use:   "quake",
	Short: "Evaluate a synthetic earthquake against every active location",
	Long: `Build a synthetic earthquake and run it through the normal point-event
path. Alerts it opens are real and are published to subscribers.`,
	Args: cobra.NoArgs,
	RunE: runSimulateQuake,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.AddCommand(simulateQuakeCmd)

	simulateQuakeCmd.Flags().Float64Var(&simLat, "lat", 0, "epicentre latitude")
	simulateQuakeCmd.Flags().Float64Var(&simLon, "lon", 0, "epicentre longitude")
	simulateQuakeCmd.Flags().Float64Var(&simMag, "mag", 0, "magnitude")
	simulateQuakeCmd.Flags().StringVar(&simPlace, "place", "simulated event", "place description")
	simulateQuakeCmd.MarkFlagRequired("lat")
	simulateQuakeCmd.MarkFlagRequired("lon")
	simulateQuakeCmd.MarkFlagRequired("mag")
}

// validateQuake applies the same bounds as the simulation endpoint.
func validateQuake(lat, lon, mag float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range")
	}
	if mag < 0 || mag > 10 {
		return fmt.Errorf("magnitude must be between 0 and 10")
	}
	return nil
}

func runSimulateQuake(cmd *cobra.Command, args []string) error {
	if err := validateQuake(simLat, simLon, simMag); err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	quake, results, err := a.Engine.SimulateQuake(cmd.Context(), simLat, simLon, simMag, simPlace)
	if output == "json" {
		if perr := printJSON(map[string]any{"quake": quake, "results": results}); perr != nil {
			return perr
		}
		return err
	}

	fmt.Printf("simulated %s: M%.1f at %.3f,%.3f\n", quake.ID, quake.Magnitude, quake.Latitude, quake.Longitude)
	if len(results) == 0 {
		fmt.Println("no active location within range")
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tDISTANCE KM\tOPENED\tDUPLICATES")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.1f\t%d\t%d\n", r.Location.Name, r.DistanceKm, len(r.Report.Opened), r.Report.Duplicates)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}
