/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/spf13/cobra"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <channel=level>...",
	Short: "Set channel levels",
	Long: `Set one or more channel levels and transmit the universe.

Channels are numbered from 1, levels range from 0 to 255. A range of
channels can be set at once with first-last=level. Channels not named keep
level 0.

Raw interfaces only output while the host sends frames; use --hold to keep
refreshing the line. DMX USB Pro widgets repeat the last frame on their own.

Examples:
  dmxctl set 1=255 2=128
  dmxctl set 1-12=0 13=255 --hold 30s`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		levels, err := parseLevels(args)
		exitOnError("parsing levels", err)

		hold, _ := cmd.Flags().GetDuration("hold")

		d, err := openDevice(false)
		exitOnError("opening device", err)
		defer d.Close()

		for ch, level := range levels {
			d.SetLevel(ch, level)
		}
		exitOnError("sending frame", d.Update(true))
		fmt.Printf("%s Set %d channel(s) on %s\n", successStyle.Render("✓"), len(levels), d.Description())

		if hold > 0 {
			fmt.Printf("%s Holding for %v, Ctrl+C to stop\n", infoStyle.Render("⏱"), hold)
			holdFrames(d, hold)
		}
	},
}

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.Flags().Duration("hold", 0, "Keep refreshing the frame for this long")
}

// parseLevels parses channel=level and first-last=level arguments
func parseLevels(args []string) (map[int]byte, error) {
	levels := make(map[int]byte)
	for _, arg := range args {
		chans, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q, want channel=level", arg)
		}
		level, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: must be 0-255", value)
		}

		first, last := chans, chans
		if a, b, isRange := strings.Cut(chans, "-"); isRange {
			first, last = a, b
		}
		lo, err := parseChannel(first)
		if err != nil {
			return nil, err
		}
		hi, err := parseChannel(last)
		if err != nil {
			return nil, err
		}
		if hi < lo {
			return nil, fmt.Errorf("invalid channel range %q", chans)
		}
		for ch := lo; ch <= hi; ch++ {
			levels[ch] = byte(level)
		}
	}
	return levels, nil
}

func parseChannel(s string) (int, error) {
	ch, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || ch < 1 || ch > dmx.MaxChannels {
		return 0, fmt.Errorf("invalid channel %q: must be 1-%d", s, dmx.MaxChannels)
	}
	return ch, nil
}

// holdFrames retransmits the universe until hold elapses or the process is
// interrupted.
func holdFrames(d dmx.Device, hold time.Duration) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelHold := context.WithTimeout(ctx, hold)
	defer cancelHold()

	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Update(true); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
				return
			}
		}
	}
}
