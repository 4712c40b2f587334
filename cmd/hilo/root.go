package hilo

import (
	"context"
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/rpc/client"
	"github.com/spf13/cobra"
)

var (
	docStore *client.DocumentStore

	// HiloCommands represents the Hi-Lo command group
	HiloCommands = &cobra.Command{
		Use:                "hilo",
		Short:              "Generate document ids and inspect Hi-Lo counters",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the Hi-Lo command
	util.SetupRPCClientFlags(HiloCommands)

	// Add subcommands
	HiloCommands.AddCommand(nextCmd)
	HiloCommands.AddCommand(returnCmd)
	HiloCommands.AddCommand(getCmd)
	HiloCommands.AddCommand(setCmd)
	HiloCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the document store
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	docStore, err = client.NewDocumentStore(*util.GetClientConfig(), util.GetTransport(), nil)
	if err != nil {
		return err
	}
	return docStore.Initialize(cmd.Context())
}

// closeClient returns the unused ranges to the server
func closeClient(cmd *cobra.Command, _ []string) error {
	if docStore == nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return docStore.Close(ctx)
}
