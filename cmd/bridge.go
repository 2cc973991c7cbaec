/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/allbin/go-dmx/internal/bridge"
	"github.com/spf13/cobra"
)

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Drive the universe from MQTT messages",
	Long: `Connect to an MQTT broker and apply level messages to the DMX interface.

Topics (with the default --topic dmx):
  dmx/<channel>   payload: level 0-255, e.g. dmx/12 = "255"
  dmx/set         payload: JSON list, e.g. [{"channel":1,"value":255}]
  dmx/status      retained "online" / "offline" published by the bridge

Changed levels are transmitted at --fps frames per second. On shutdown the
universe is blacked out.

Examples:
  dmxctl bridge --broker tcp://localhost:1883
  DMX_MQTT_PASSWORD=secret dmxctl bridge --username stage`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := openDevice(false)
		exitOnError("opening device", err)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer cancel()

		b := bridge.New(d, bridge.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
			FPS:      cfg.MQTT.FPS,
		}, log)

		fmt.Printf("%s Bridging %s to %s\n", infoStyle.Render("⚡"), cfg.MQTT.Broker, d.Description())
		runErr := b.Run(ctx)
		exitErr := d.Exit()
		exitOnError("running bridge", runErr)
		exitOnError("blacking out", exitErr)
		log.Info("shutdown complete")
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	f := bridgeCmd.Flags()
	f.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	f.String("client-id", "dmxctl", "MQTT client ID")
	f.String("topic", "dmx", "Topic prefix")
	f.String("username", "", "MQTT username")
	f.String("password", "", "MQTT password")
	f.Int("qos", 0, "MQTT QoS level (0-2)")
	f.Int("fps", 30, "Frames per second (1-44)")

	bindFlags(bridgeCmd, map[string]string{
		"mqtt.broker":    "broker",
		"mqtt.client-id": "client-id",
		"mqtt.topic":     "topic",
		"mqtt.username":  "username",
		"mqtt.password":  "password",
		"mqtt.qos":       "qos",
		"mqtt.fps":       "fps",
	})
}
