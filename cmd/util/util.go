package util

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// HashString maps a node name to a stable replica id (FNV-1a)
func HashString(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// ParseKeyValueList parses a comma-separated list of KEY=VALUE pairs
func ParseKeyValueList(list string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(list) == "" {
		return result, nil
	}

	for _, item := range strings.Split(list, ",") {
		key, value, found := strings.Cut(item, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !found || key == "" || value == "" {
			return nil, fmt.Errorf("invalid format: %q (expected KEY=VALUE)", item)
		}
		if _, ok := result[key]; ok {
			return nil, fmt.Errorf("duplicate key: %q", key)
		}
		result[key] = value
	}
	return result, nil
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "A=http://localhost:8080", WrapString("Comma-separated list of dDoc nodes, either as TAG=URL or as plain URL"))

	key = "database"
	cmd.PersistentFlags().String(key, "default", WrapString("The default database"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request after all nodes failed"))

	key = "read-balance"
	cmd.PersistentFlags().String(key, "none", WrapString("Which node to send a request to first (none, round-robin, fastest)"))

	key = "failover-cooldown"
	cmd.PersistentFlags().Int(key, 5, WrapString("How long in seconds a failed node is tried last"))

	key = "disable-topology-updates"
	cmd.PersistentFlags().Bool(key, false, WrapString("Do not replace the endpoints with the topology announced by the cluster"))

	key = "hilo-capacity"
	cmd.PersistentFlags().Int64(key, 32, WrapString("Size of the first range requested per collection"))

	key = "hilo-max-capacity"
	cmd.PersistentFlags().Int64(key, 1<<20, WrapString("Upper bound for the size of a range"))
}

// InitConfig loads .env files and binds environment variables (DDOC_<FLAG>)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ddoc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return &common.ClientConfig{
		Endpoints:              endpoints,
		Database:               viper.GetString("database"),
		Serializer:             viper.GetString("serializer"),
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("retries"),
		ReadBalance:            common.ReadBalanceBehavior(viper.GetString("read-balance")),
		FailoverCooldownSecond: viper.GetInt("failover-cooldown"),
		DisableTopologyUpdates: viper.GetBool("disable-topology-updates"),
		HiloCapacity:           viper.GetInt64("hilo-capacity"),
		HiloMaxCapacity:        viper.GetInt64("hilo-max-capacity"),
	}
}

// GetTransport creates the client transport
func GetTransport() transport.IRPCClientTransport {
	return http.NewHttpClientTransport()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
