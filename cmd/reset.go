/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a DMX interface",
	Long: `Reset the USB-serial bridge of a DMX interface. This flushes its buffers
and releases a stuck break condition, which can recover an interface that
stopped producing output without unplugging it.

Examples:
  dmxctl reset
  dmxctl reset --serial A6008`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := openDevice(false)
		exitOnError("opening device", err)
		defer d.Close()

		exitOnError("resetting device", d.Reset())
		fmt.Printf("%s Reset %s\n", successStyle.Render("✓"), d.Description())
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
