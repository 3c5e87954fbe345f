package main

import (
	"fmt"
	"os"

	"github.com/loykin/webstep/cmd/webstep/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "webstep",
	Short:        "Turn pipeline messages into HTTP requests against a configured endpoint",
	SilenceUsage: true,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", "./config/config.yaml")
	v.SetDefault("input", "-")
	v.SetDefault("limit", 0)
	v.SetDefault("step", "")
	v.SetDefault("addr", "")

	// Environment variables support: WEBSTEP_CONFIG, WEBSTEP_INPUT, ...
	v.SetEnvPrefix("WEBSTEP")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	commands.RunCmd.Flags().String("input", v.GetString("input"), "JSON lines file with inbound messages (- for stdin)")
	commands.ServeCmd.Flags().String("addr", v.GetString("addr"), "listen address (overrides server.addr)")
	commands.HistoryCmd.Flags().Int("limit", v.GetInt("limit"), "maximum number of runs to show (0 = default)")
	commands.HistoryCmd.Flags().String("step", v.GetString("step"), "only show runs of this step")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("input", commands.RunCmd.Flags().Lookup("input"))
	_ = v.BindPFlag("addr", commands.ServeCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("limit", commands.HistoryCmd.Flags().Lookup("limit"))
	_ = v.BindPFlag("step", commands.HistoryCmd.Flags().Lookup("step"))

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
