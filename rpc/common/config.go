package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMaxFrameSize is the largest accepted frame payload if nothing else is configured
	DefaultMaxFrameSize = 16 * 1024 * 1024 // 16 MB
)

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the settings shared by all stream sockets
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds all transport parameters of the server
type ServerTransportConfig struct {
	// Endpoint is the address to bind (host:port for tcp, a socket path for unix)
	Endpoint string
	// MaxFrameSize is the largest request payload in bytes, larger frames are rejected
	MaxFrameSize int
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters of the relay server.
type ServerConfig struct {
	// per connection read / write deadline, 0 disables deadlines
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// MetricsEndpoint is the address of the prometheus endpoint, empty disables it
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// FrameLimit returns the configured max frame size or the default
func (c *ServerConfig) FrameLimit() int {
	if c.Transport.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.Transport.MaxFrameSize
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
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.FrameLimit()))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	// Metrics
	addSection("Metrics")
	if c.MetricsEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds all transport parameters of a client
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
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
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
