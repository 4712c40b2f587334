package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/server"
	"github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dDoc server",
		Long:    `Start the dDoc server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DDOC_<flag> (e.g. DDOC_NODE_TAG=B)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "databases"
	ServeCmd.PersistentFlags().String(key, "default=lstore", cmdUtil.WrapString("Comma-separated list of databases to serve. Format: NAME=TYPE where TYPE is one of: lstore, dstore(SHARD)"))

	key = "auto-create"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Create unknown databases as local stores on first use"))

	key = "node-tag"
	ServeCmd.PersistentFlags().String(key, "A", cmdUtil.WrapString("Tag of this node, appended to every generated document id (e.g. users/1-A)"))

	key = "cluster-nodes"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of the public urls of all nodes, announced to clients as topology. Format: 'A=http://host-a:8080,B=http://host-b:8080'"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(dstore) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. \nOther raft configuration parameters (ElectionRTT=value*10, HeartbeatRTT=value*1) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(dstore) SnapshotEntries defines how often the state machine should be snapshotted automatically. It is defined in terms of the number of applied Raft log entries. SnapshotEntries can be set to 0 to disable such automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(dstore) CompactionOverhead defines the number of snapshots that should be retained in the system. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("(dstore) DataDir is the directory used for storing the raft log and snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("(dstore) Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse databases
	serveCmdConfig.Databases = []common.ServerDatabase{}
	for _, def := range strings.Split(viper.GetString("databases"), ",") {
		if strings.TrimSpace(def) == "" {
			continue
		}
		db, err := common.ParseServerDatabase(def)
		if err != nil {
			return err
		}
		serveCmdConfig.Databases = append(serveCmdConfig.Databases, db)
	}

	// parse topology
	nodes, err := cmdUtil.ParseKeyValueList(viper.GetString("cluster-nodes"))
	if err != nil {
		return fmt.Errorf("invalid cluster nodes: %w", err)
	}
	serveCmdConfig.ClusterNodes = nodes

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.AutoCreateDatabases = viper.GetBool("auto-create")
	serveCmdConfig.NodeTag = viper.GetString("node-tag")
	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = cmdUtil.HashString(id)
	} else if serveCmdConfig.HasDistributedDatabase() {
		// error only if cluster mode
		return fmt.Errorf("ReplicaId is required for dstore databases")
	}

	// parse cluster members
	members, err := cmdUtil.ParseKeyValueList(viper.GetString("cluster-members"))
	if err != nil {
		return fmt.Errorf("invalid cluster members: %w", err)
	}
	if len(members) == 0 && serveCmdConfig.HasDistributedDatabase() {
		return fmt.Errorf("ClusterMembers is required for dstore databases")
	}
	serveCmdConfig.ClusterMembers = make(map[uint64]string, len(members))
	for name, address := range members {
		serveCmdConfig.ClusterMembers[cmdUtil.HashString(name)] = address
	}

	// test if the replica id is in the cluster members (only for cluster mode)
	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && serveCmdConfig.HasDistributedDatabase() {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return nil
}

// run starts the dDoc server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, http.NewHttpServerTransport())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- serv.Serve() }()

	select {
	case err := <-errCh:
		_ = serv.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := serv.Close(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
