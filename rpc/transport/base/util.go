package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/mlsrelay/rpc/transport"
)

const frameHeaderSize = 12

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(w io.Writer, requestID uint64, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
//
// Frames with a payload larger than maxSize (if maxSize > 0) are read and discarded,
// the returned error wraps transport.ErrFrameTooLarge and the requestID is still valid.
// A connection closed between two frames returns io.EOF, one closed inside a frame
// io.ErrUnexpectedEOF.
func readFrame(r io.Reader, buf []byte, maxSize int) (uint64, []byte, error) {
	var header [frameHeaderSize]byte

	// Read header
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	// Parse header
	requestID := binary.BigEndian.Uint64(header[:8])
	contentLength := binary.BigEndian.Uint32(header[8:12])

	if maxSize > 0 && uint64(contentLength) > uint64(maxSize) {
		if _, err := io.CopyN(io.Discard, r, int64(contentLength)); err != nil {
			return 0, nil, noEOF(err)
		}
		return requestID, nil, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", transport.ErrFrameTooLarge, contentLength, maxSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return requestID, []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return 0, nil, noEOF(err)
	}

	return requestID, buf[:contentLength], nil
}

// noEOF turns io.EOF inside a frame into io.ErrUnexpectedEOF
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
