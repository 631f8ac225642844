package relay

import (
	"github.com/ValentinKolb/mlsrelay/cmd/util"
	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/rpc/client"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	rpcStore     store.IStore
	rpcTransport transport.IRPCClientTransport

	// asHex switches byte arguments and output to hex encoding
	asHex bool

	// BundleCommands represents the directory command group
	BundleCommands = &cobra.Command{
		Use:                "bundle",
		Short:              "Publish and read key bundles",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}

	// GroupCommands represents the group registry command group
	GroupCommands = &cobra.Command{
		Use:                "group",
		Short:              "Create, join and relay messages to groups",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}

	// PerfCommand runs a load test against a relay server
	PerfCommand = perfTestCmd
)

func init() {
	for _, cmd := range []*cobra.Command{BundleCommands, GroupCommands, PerfCommand} {
		// Add common RPC flags
		util.SetupRPCClientFlags(cmd)
	}

	for _, cmd := range []*cobra.Command{BundleCommands, GroupCommands} {
		cmd.PersistentFlags().BoolVar(&asHex, "hex", false, util.WrapString("Read bundles and payloads as hex from the arguments and print them as hex"))
	}

	// Add subcommands
	BundleCommands.AddCommand(bundlePutCmd)
	BundleCommands.AddCommand(bundleGetCmd)
	BundleCommands.AddCommand(bundleListCmd)

	GroupCommands.AddCommand(groupCreateCmd)
	GroupCommands.AddCommand(groupJoinCmd)
	GroupCommands.AddCommand(groupRelayCmd)
	GroupCommands.AddCommand(groupShowCmd)
	GroupCommands.AddCommand(groupMessagesCmd)
}

// setupClient initializes the RPC store client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	rpcTransport, err = util.GetTransport()
	if err != nil {
		return err
	}

	// Create the relay client
	rpcStore, err = client.NewRPCStore(*config, rpcTransport, s)
	return err
}

func closeClient(*cobra.Command, []string) error {
	if rpcTransport == nil {
		return nil
	}
	return rpcTransport.Close()
}
