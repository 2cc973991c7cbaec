/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/allbin/go-dmx"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display detailed information about a DMX interface",
	Long: `Open a DMX interface and display its USB strings and, for DMX USB Pro
widgets, the firmware version, output timing and serial number.

Examples:
  dmxctl info
  dmxctl info --serial EN05
  dmxctl info --user-config 32`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := openDevice(false)
		exitOnError("opening device", err)
		defer d.Close()

		fmt.Printf("Interface Information: %s\n\n", d.Description())
		fmt.Printf("  Type:         %s\n", d.Type())
		if desc := d.Descriptor(); desc != nil {
			fmt.Printf("  Manufacturer: %s\n", desc.Manufacturer)
			fmt.Printf("  Description:  %s\n", desc.Description)
			fmt.Printf("  USB Serial:   %s\n", desc.Serial)
		}
		fmt.Printf("  Channels:     %d\n", d.Channels()-1)

		pro, ok := dmx.AsPro(d)
		if !ok {
			return
		}

		userConfigLength, _ := cmd.Flags().GetInt("user-config")
		params, err := pro.FetchWidgetParameters(userConfigLength)
		exitOnError("reading widget parameters", err)
		sn, err := pro.FetchSerialNumber()
		exitOnError("reading serial number", err)

		fmt.Println("\nWidget Information:")
		printParams(params)
		fmt.Printf("  Serial:       %s\n", sn)
		if userConfigLength > 0 {
			fmt.Printf("  User config:  %s\n", hex.EncodeToString(pro.UserConfig()))
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Int("user-config", 0, "Also read this many bytes of user configuration (max 508)")
}

func printParams(p dmx.WidgetParameters) {
	rate := "as fast as possible"
	if p.RefreshRate > 0 {
		rate = fmt.Sprintf("%d frames/s", p.RefreshRate)
	}
	fmt.Printf("  Firmware:     %s\n", p.Firmware())
	fmt.Printf("  Break:        %v (%d units)\n", p.BreakTime, p.BreakUnits())
	fmt.Printf("  Mark after:   %v (%d units)\n", p.MABTime, p.MABUnits())
	fmt.Printf("  Refresh rate: %s\n", rate)
}
