package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/mlsrelay/cmd/util"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the relay server",
		Long:    `Start the relay server with the specified configuration. The configuration can be set via command line flags, environment variables or a config file (--config). The format of the environment variables is MLSRELAY_<flag> (e.g. MLSRELAY_MAX_FRAME_SIZE=1048576)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:7400", cmdUtil.WrapString("The address on which the relay will listen (host:port for tcp, a socket path for unix)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read and write deadline per connection in seconds, idle connections are closed after this time (0 disables deadlines)"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("Largest accepted request in bytes, larger requests are answered with an error"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the prometheus /metrics endpoint (e.g. localhost:9400), empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (only for tcp, 0 keeps the system default)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.Transport.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Transport.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// fail early on an invalid level
	_, err := common.ParseLogLevel(serveCmdConfig.LogLevel)
	return err
}

// run starts the relay server and stops it on SIGINT / SIGTERM
func run(cmd *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewRPCServer(*serveCmdConfig, t, s).Serve(ctx)
}
