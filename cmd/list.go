/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached DMX interfaces",
	Long: `List all attached FTDI FT232R bridges (VID 0403, PID 6001).

Bridges whose USB description starts with "DMX USB PRO" are driven as
DMX USB Pro widgets, all others as raw DMX interfaces. The index shown is
the one accepted by --index.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := ftdi.NewDirectory(ftdi.DefaultDriver())
		defer dir.Free()

		infos, err := dir.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}

		if len(infos) == 0 {
			fmt.Println("No DMX interfaces found")
			return
		}

		tableFormat, _ := cmd.Flags().GetBool("table")
		if tableFormat {
			renderTable(infos)
		} else {
			renderSimple(infos)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// deviceType classifies a bridge by its USB description
func deviceType(info ftdi.DeviceInfo) string {
	if info.Descriptor == nil {
		return dmx.TypeRaw.String()
	}
	if strings.HasPrefix(info.Descriptor.Description, dmx.ProDescription) {
		return dmx.TypePro.String()
	}
	return dmx.TypeRaw.String()
}

// renderTable renders the device list in a styled static table format
func renderTable(infos []ftdi.DeviceInfo) {
	fmt.Printf("Found %d interface(s):\n\n", len(infos))

	// Define column widths
	indexWidth := 6
	typeWidth := 6
	mfrWidth := 16
	descWidth := 24
	serialWidth := 12

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s",
		indexWidth, "Index",
		typeWidth, "Type",
		mfrWidth, "Manufacturer",
		descWidth, "Description",
		serialWidth, "Serial")
	fmt.Println(headerStyle.Render(header))

	for _, info := range infos {
		mfr, desc, serial := "?", "(strings unreadable)", "?"
		if d := info.Descriptor; d != nil {
			mfr, desc, serial = d.Manufacturer, d.Description, d.Serial
		}
		row := fmt.Sprintf("%-*d %-*s %-*s %-*s %-*s",
			indexWidth, info.Index,
			typeWidth, deviceType(info),
			mfrWidth, mfr,
			descWidth, desc,
			serialWidth, serial)
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the device list in simple text format
func renderSimple(infos []ftdi.DeviceInfo) {
	for _, info := range infos {
		if info.Descriptor == nil {
			fmt.Printf("%d %s\n", info.Index, deviceType(info))
			continue
		}
		fmt.Printf("%d %s %s (%s)\n", info.Index, deviceType(info), info.Descriptor.Description, info.Descriptor.Serial)
	}
}
