package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/mlsrelay/cmd/relay"
	"github.com/ValentinKolb/mlsrelay/cmd/serve"
	"github.com/ValentinKolb/mlsrelay/cmd/util"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mlsrelay",
		Short: "delivery service for MLS groups",
		Long: fmt.Sprintf(`mlsrelay (v%s)

A relay server for end-to-end encrypted group messaging. It stores the
key bundles of clients and keeps an ordered log of opaque messages per
group, the payloads are never inspected.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mlsrelay",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mlsrelay v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(relay.BundleCommands)
	RootCmd.AddCommand(relay.GroupCommands)
	RootCmd.AddCommand(relay.PerfCommand)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString(fmt.Sprintf("serializer to use (%s)", strings.Join(serializer.Names(), ", "))))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("optional config file (yaml, json or toml), flags and environment variables take precedence"))

	// the config file is read before any command binds its flags
	for _, key := range []string{"serializer", "transport", "config"} {
		_ = viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(key))
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
