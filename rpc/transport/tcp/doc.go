// Package tcp implements the TCP socket transport of the relay. It provides the
// TCP-specific connectors for the base package, which implements framing, connection
// handling and request correlation.
//
// Socket options (no delay, keep-alive, linger, buffer sizes) are taken from
// common.TCPConf and common.SocketConf and applied to every accepted or dialed
// connection. The server pools request buffers of 512 KB.
package tcp
