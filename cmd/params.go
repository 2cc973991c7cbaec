/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// paramsCmd represents the params command
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Read or change DMX USB Pro output timing",
	Long: `Read or change the output timing stored in a DMX USB Pro widget.

Break and mark-after-break times are rounded to whole 10.67µs units.
The widget accepts a break of 9-127 units (96µs-1.36ms), a mark after break
of 1-127 units and a refresh rate of 0-40 frames/s, where 0 means as fast as
possible.`,
}

var paramsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Display widget parameters",
	Run: func(cmd *cobra.Command, args []string) {
		pro := openPro()
		defer pro.Close()

		userConfigLength, _ := cmd.Flags().GetInt("user-config")
		params, err := pro.FetchWidgetParameters(userConfigLength)
		exitOnError("reading widget parameters", err)

		fmt.Printf("Widget Parameters: %s\n\n", pro.Description())
		printParams(params)
		if userConfigLength > 0 {
			fmt.Printf("  User config:  %s\n", hex.EncodeToString(pro.UserConfig()))
		}
	},
}

var paramsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change widget parameters",
	Long: `Change widget parameters. Values not given on the command line keep
their current setting.

Examples:
  dmxctl params set --break 176us --mab 12us
  dmxctl params set --rate 30
  dmxctl params set --user-config-data 0a0b0c`,
	Run: func(cmd *cobra.Command, args []string) {
		pro := openPro()
		defer pro.Close()

		params, err := pro.FetchWidgetParameters(0)
		exitOnError("reading widget parameters", err)

		flags := cmd.Flags()
		if flags.Changed("break") {
			params.BreakTime, _ = flags.GetDuration("break")
		}
		if flags.Changed("mab") {
			params.MABTime, _ = flags.GetDuration("mab")
		}
		if flags.Changed("rate") {
			params.RefreshRate, _ = flags.GetInt("rate")
		}

		var userConfig []byte
		if flags.Changed("user-config-data") {
			data, _ := flags.GetString("user-config-data")
			userConfig, err = hex.DecodeString(strings.TrimPrefix(data, "0x"))
			exitOnError("parsing user configuration", err)
		}

		exitOnError("writing widget parameters", pro.SetWidgetParameters(params, userConfig))

		params, _ = pro.WidgetParameters()
		fmt.Printf("%s Widget parameters updated\n", successStyle.Render("✓"))
		printParams(params)
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsGetCmd, paramsSetCmd)

	paramsGetCmd.Flags().Int("user-config", 0, "Also read this many bytes of user configuration (max 508)")

	paramsSetCmd.Flags().Duration("break", 0, "Break time, e.g. 176us")
	paramsSetCmd.Flags().Duration("mab", 0, "Mark after break time, e.g. 12us")
	paramsSetCmd.Flags().Int("rate", 0, "Refresh rate in frames/s, 0 for as fast as possible")
	paramsSetCmd.Flags().String("user-config-data", "", "User configuration as hex (max 508 bytes)")
}
