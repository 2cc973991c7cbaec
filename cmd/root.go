/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/internal/config"
	"github.com/allbin/go-dmx/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	log     *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dmxctl",
	Short: "Control DMX512 lighting through FTDI based USB interfaces",
	Long: `dmxctl drives a DMX512 universe through an Enttec DMX USB Pro compatible
widget or a plain FTDI FT232R USB-serial bridge.

Without device flags the first attached interface is used, driven as a
DMX USB Pro if its USB description says so and as a raw bridge otherwise.
With --pro-only the first DMX USB Pro is used.

Every flag can also be set in a config file (--config) or through the
environment with a DMX_ prefix, e.g. DMX_MQTT_BROKER.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		log, err = logger.New(cfg.Log.Level, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("description", "", "Select the interface whose USB description starts with this")
	pf.String("serial", "", "Select the interface whose USB serial starts with this")
	pf.Int("index", 0, "Select the n-th matching interface")
	pf.Bool("pro-only", false, "Only use DMX USB Pro widgets")
	pf.Int("channels", dmx.MaxChannels, "Universe size including the start code slot (24-512)")

	bindFlags(rootCmd, map[string]string{
		"log.level":          "log-level",
		"device.description": "description",
		"device.serial":      "serial",
		"device.index":       "index",
		"device.pro-only":    "pro-only",
		"channels":           "channels",
	})
}

// bindFlags binds viper keys to persistent or local flags of cmd
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}
