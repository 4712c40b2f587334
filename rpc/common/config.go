package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/config"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,  // = c.RTTMillisecond * 10
		HeartbeatRTT:       heartbeatRTTFactor, // = c.RTTMillisecond * 1
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type DatabaseType string

const (
	DatabaseTypeLocal       DatabaseType = "lstore"
	DatabaseTypeDistributed DatabaseType = "dstore"
)

// ServerDatabase describes one database hosted by the server
type ServerDatabase struct {
	Name string
	Type DatabaseType
	// ShardID is the raft shard backing a distributed database
	ShardID uint64
}

// String returns the database in the same form ParseServerDatabase accepts
func (d ServerDatabase) String() string {
	if d.Type == DatabaseTypeDistributed {
		return fmt.Sprintf("%s=%s(%d)", d.Name, d.Type, d.ShardID)
	}
	return fmt.Sprintf("%s=%s", d.Name, d.Type)
}

// ParseServerDatabase parses a database definition of the form
// NAME, NAME=lstore or NAME=dstore(SHARD).
func ParseServerDatabase(s string) (ServerDatabase, error) {
	name, kind, found := strings.Cut(strings.TrimSpace(s), "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return ServerDatabase{}, fmt.Errorf("invalid database %q: missing name", s)
	}
	kind = strings.TrimSpace(kind)
	if !found || kind == "" || kind == string(DatabaseTypeLocal) {
		return ServerDatabase{Name: name, Type: DatabaseTypeLocal}, nil
	}

	if !strings.HasPrefix(kind, string(DatabaseTypeDistributed)+"(") || !strings.HasSuffix(kind, ")") {
		return ServerDatabase{}, fmt.Errorf("invalid database %q: type must be lstore or dstore(SHARD)", s)
	}
	shard, err := strconv.ParseUint(kind[len(DatabaseTypeDistributed)+1:len(kind)-1], 10, 64)
	if err != nil || shard == 0 {
		return ServerDatabase{}, fmt.Errorf("invalid database %q: shard id must be a positive integer", s)
	}
	return ServerDatabase{Name: name, Type: DatabaseTypeDistributed, ShardID: shard}, nil
}

// ServerConfig holds all configuration parameters for a dDoc server node.
type ServerConfig struct {
	// databases served by this node
	Databases []ServerDatabase
	// create unknown databases as local stores on first use
	AutoCreateDatabases bool

	// NodeTag is appended to generated document ids (users/1-A)
	NodeTag string
	// ClusterNodes maps node tags to their public urls (announced as topology)
	ClusterNodes map[string]string

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// remote store parameters
	TimeoutSecond int64

	// HTTP api settings
	Endpoint string

	// Logging configuration
	LogLevel string
}

// HasDistributedDatabase checks if the configuration contains any raft backed database
func (c *ServerConfig) HasDistributedDatabase() bool {
	for _, db := range c.Databases {
		if db.Type == DatabaseTypeDistributed {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Node Tag", c.NodeTag)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Databases
	addSection("Databases")
	addField("Auto Create", fmt.Sprintf("%t", c.AutoCreateDatabases))
	for _, db := range c.Databases {
		addField(db.Name, db.String())
	}

	if len(c.ClusterNodes) > 0 {
		addSection("Topology")
		tags := make([]string, 0, len(c.ClusterNodes))
		for tag := range c.ClusterNodes {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			addField(tag, c.ClusterNodes[tag])
		}
	}

	if c.HasDistributedDatabase() {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		// Storage
		addSection("Storage")
		addField("Data Directory", c.DataDir)

		addSection("Cluster")
		sb.WriteString("  Initial Cluster Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ReadBalanceBehavior selects the node a request is sent to first
type ReadBalanceBehavior string

const (
	ReadBalanceNone       ReadBalanceBehavior = "none"
	ReadBalanceRoundRobin ReadBalanceBehavior = "round-robin"
	ReadBalanceFastest    ReadBalanceBehavior = "fastest"
)

// ParseReadBalanceBehavior validates a read balance name, the empty string means none
func ParseReadBalanceBehavior(s string) (ReadBalanceBehavior, error) {
	switch ReadBalanceBehavior(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReadBalanceNone:
		return ReadBalanceNone, nil
	case ReadBalanceRoundRobin:
		return ReadBalanceRoundRobin, nil
	case ReadBalanceFastest:
		return ReadBalanceFastest, nil
	default:
		return "", fmt.Errorf("invalid read balance behavior %q: must be one of none, round-robin, fastest", s)
	}
}

type ClientConfig struct {
	// Endpoints are given as TAG=URL or plain URL
	Endpoints              []string
	Database               string
	Serializer             string
	TimeoutSecond          int
	RetryCount             int
	ReadBalance            ReadBalanceBehavior
	FailoverCooldownSecond int
	DisableTopologyUpdates bool

	// Hi-Lo parameters, zero means default
	HiloCapacity    int64
	HiloMaxCapacity int64
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Database", c.Database)
	addField("Serializer", c.Serializer)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Read Balance", string(c.ReadBalance))
	addField("Failover Cooldown", fmt.Sprintf("%d sec", c.FailoverCooldownSecond))
	addField("Topology Updates", fmt.Sprintf("%t", !c.DisableTopologyUpdates))

	addSection("Hi-Lo")
	addField("Capacity", strconv.FormatInt(c.HiloCapacity, 10))
	addField("Max Capacity", strconv.FormatInt(c.HiloMaxCapacity, 10))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
