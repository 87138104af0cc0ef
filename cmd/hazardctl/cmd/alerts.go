package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts <location-id>",
	Short: "List the active alerts of a location",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid location id %q", args[0])
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	loc, err := a.DB.GetLocation(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("location %d: %w", id, err)
	}
	alerts, err := a.DB.ActiveAlerts(cmd.Context(), id)
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(alerts)
	}
	if len(alerts) == 0 {
		fmt.Printf("no active alerts for %s\n", loc.Name)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tTITLE\tEVENT\tSINCE")
	for _, al := range alerts {
		event := al.EventID
		if event == "" {
			event = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", al.Severity, al.Title, event, al.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
