package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change poll interval overrides",
	Long: `Poll intervals are stored in whole seconds and picked up by a running
server after its next cycle.

Keys:
  ` + models.SettingWeatherPollInterval + `
  ` + models.SettingSeismicPollInterval,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <seconds>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !models.IsKnownSetting(key) {
		return fmt.Errorf("%w: %s", models.ErrUnknownSetting, key)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	val, ok, err := a.DB.GetSetting(cmd.Context(), key)
	if err != nil {
		return err
	}
	if output == "json" {
		var v any
		if ok {
			v = val
		}
		return printJSON(map[string]any{"key": key, "value": v})
	}
	if !ok {
		fmt.Printf("%s is not set, the configured default applies\n", key)
		return nil
	}
	fmt.Printf("%s = %s\n", key, val)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	val, err := models.NormalizeSetting(key, args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.DB.SetSetting(cmd.Context(), key, val); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, val)
	return nil
}
