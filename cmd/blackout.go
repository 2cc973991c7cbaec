/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// blackoutCmd represents the blackout command
var blackoutCmd = &cobra.Command{
	Use:   "blackout",
	Short: "Set every channel to zero",
	Long: `Send a frame of zeros over the full 512 channel range and close the
interface.`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := openDevice(false)
		exitOnError("opening device", err)

		desc := d.Description()
		exitOnError("sending blackout", d.Exit())
		fmt.Printf("%s Blackout sent to %s\n", successStyle.Render("✓"), desc)
	},
}

func init() {
	rootCmd.AddCommand(blackoutCmd)
}
