// Package pktline encodes and decodes the pkt-line framing used by the
// smart HTTP git transport: a 4-byte hex-ASCII length prefix (including
// itself) followed by that many bytes of payload, or the literal "0000"
// flush marker.
package pktline

import (
	"errors"
	"fmt"
)

// ErrTooLong is returned by Encode if the payload would overflow the
// 4-hex-digit length prefix.
var ErrTooLong = errors.New("pkt-line payload too long")

// maxPayloadLen is the largest payload Encode can frame: 0xFFFF minus the
// 4 bytes of the length prefix itself.
const maxPayloadLen = 0xFFFF - 4

// Encode wraps payload in a single pkt-line record: a 4-digit lowercase
// hex length (counting the prefix itself) followed by payload verbatim.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, ErrTooLong
	}
	return append([]byte(fmt.Sprintf("%04x", len(payload)+4)), payload...), nil
}

// Flush is the literal flush-pkt marker.
var Flush = []byte("0000")

// CutLengthPrefix removes a single pkt-line record's leading 4-byte hex
// length prefix from line, returning the remaining payload. It does not
// attempt to detect whether the prefix is actually present: callers must
// only use it on lines known to carry pkt-line framing.
func CutLengthPrefix(line []byte) []byte {
	if len(line) < 4 {
		return line
	}
	return line[4:]
}
