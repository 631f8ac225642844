// Package unix implements the Unix domain socket transport of the relay, for clients
// running on the same machine as the server. A socket file left behind by a previous
// server is replaced on bind and the new socket is only accessible to the owner and
// group of the server process. The server pools request buffers of 64 KB.
package unix
