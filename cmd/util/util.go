package util

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/tcp"
	"github.com/ValentinKolb/mlsrelay/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. MLSRELAY_TIMEOUT)
	EnvPrefix = "mlsrelay"
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

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files, environment variables and the optional config file
// Errors reading the config file are printed, the flags and environment still apply
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Printf("failed to read config file %s: %v\n", file, err)
		}
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:7400", WrapString("The address of the relay server. Multiple endpoints can be specified as a comma-separated list, requests are distributed round robin"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try a request that could not be sent (dial or write failures), a sent request is never repeated"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	endpoints := make([]string, 0)
	for _, ep := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}

	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              endpoints,
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			TCPConf: common.TCPConf{
				TCPNoDelay: viper.GetBool("tcp-nodelay"),
			},
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetTransport creates a client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected tcp or unix)", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected tcp or unix)", viper.GetString("transport"))
	}
}

// --------------------------------------------------------------------------
// Argument helpers
// --------------------------------------------------------------------------

// ParseBytes converts a command line argument to bytes, decoding it as hex if asHex is set
func ParseBytes(arg string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(arg), nil
	}
	b, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", arg, err)
	}
	return b, nil
}

// FormatBytes renders bytes for output, as hex if asHex is set
func FormatBytes(b []byte, asHex bool) string {
	if asHex {
		return hex.EncodeToString(b)
	}
	return string(b)
}
