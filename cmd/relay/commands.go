package relay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/mlsrelay/cmd/util"
	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/spf13/cobra"
)

// --------------------------------------------------------------------------
// Directory
// --------------------------------------------------------------------------

var (
	bundlePutCmd = &cobra.Command{
		Use:   "put [client-id] [bundle]",
		Short: "Publishes (or replaces) the key bundle of a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := util.ParseBytes(args[1], asHex)
			if err != nil {
				return err
			}
			if err := rpcStore.PutBundle(args[0], bundle); err != nil {
				return err
			}
			fmt.Printf("bundle stored for %s\n", args[0])
			return nil
		},
	}
	bundleGetCmd = &cobra.Command{
		Use:   "get [client-id]",
		Short: "Prints the key bundle of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, found, err := rpcStore.GetBundle(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("no bundle published for %s\n", args[0])
				return nil
			}
			fmt.Println(util.FormatBytes(bundle, asHex))
			return nil
		},
	}
	bundleListCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all clients with a published key bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := rpcStore.ListIdentities()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Group registry
// --------------------------------------------------------------------------

var (
	groupCreateCmd = &cobra.Command{
		Use:   "create [group-id] [creator-id]",
		Short: "Registers a new group with the creator as its only member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := rpcStore.CreateGroup(args[0], args[1])
			if err != nil {
				return err
			}
			printGroup(g)
			return nil
		},
	}
	groupJoinCmd = &cobra.Command{
		Use:   "join [group-id] [client-id]",
		Short: "Adds a client to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := rpcStore.JoinGroup(args[0], args[1])
			if err != nil {
				return err
			}
			printGroup(g)
			return nil
		},
	}
	groupRelayCmd = &cobra.Command{
		Use:   "relay [group-id] [sender-id] [kind] [payload]",
		Short: "Appends a message to the log of a group (kind: Welcome, Add, Application, Commit, Proposal)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := store.ParseMessageKind(args[2])
			if err != nil {
				return err
			}
			payload, err := util.ParseBytes(args[3], asHex)
			if err != nil {
				return err
			}
			if err := rpcStore.Relay(args[0], args[1], payload, kind); err != nil {
				return err
			}
			fmt.Println("relayed successfully")
			return nil
		},
	}
	groupShowCmd = &cobra.Command{
		Use:   "show [group-id]",
		Short: "Prints the members of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := rpcStore.GetGroup(args[0])
			if err != nil {
				return err
			}
			printGroup(g)
			return nil
		},
	}
	groupMessagesCmd = &cobra.Command{
		Use:   "messages [group-id] [client-id] [offset] [limit]",
		Short: "Prints the relayed messages of a group as seen by a member (limit 0 prints all)",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var offset, limit uint64
			var err error
			if len(args) > 2 {
				if offset, err = strconv.ParseUint(args[2], 10, 64); err != nil {
					return fmt.Errorf("offset must be a number: %w", err)
				}
			}
			if len(args) > 3 {
				if limit, err = strconv.ParseUint(args[3], 10, 64); err != nil {
					return fmt.Errorf("limit must be a number: %w", err)
				}
			}

			entries, total, err := rpcStore.FetchMessages(args[0], args[1], offset, limit)
			if err != nil {
				return err
			}
			for i, e := range entries {
				fmt.Printf("%-6d %-12s %-10s %s\n", offset+uint64(i), e.Kind, e.SenderID, util.FormatBytes(e.Payload, asHex))
			}
			fmt.Printf("(%d of %d messages)\n", len(entries), total)
			return nil
		},
	}
)

func printGroup(g store.GroupRecord) {
	fmt.Printf("group:    %s\n", g.GroupID)
	fmt.Printf("creator:  %s\n", g.Creator)
	fmt.Printf("members:  %s\n", strings.Join(g.Members, ", "))
	fmt.Printf("messages: %d\n", g.Messages)
}
