package ginternals

import (
	"encoding/hex"

	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/ginternals/githash"
)

// hasher is the single hash algorithm used throughout this implementation.
// Git objects are SHA-1 addressed; see githash for the Hash abstraction this
// wraps.
var hasher = githash.NewSHA1()

// oidSize is the length, in bytes, of a raw Oid.
const oidSize = 20

// Oid represents a git Object ID: the SHA-1 of an object's contents, in its
// compact 20-byte form.
type Oid [oidSize]byte

// NullOid is the zero-value Oid, used to represent the absence of an object
var NullOid = Oid{}

// String returns the lowercase hex representation of the Oid
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// Bytes returns the raw 20-byte form of the Oid
func (o Oid) Bytes() []byte {
	return o[:]
}

// IsZero returns whether the Oid is the NullOid
func (o Oid) IsZero() bool {
	return o == NullOid
}

// NewOidFromContent returns the Oid of the given content (the SHA-1 of the
// bytes, as-is; callers are expected to have already framed the content with
// its "<type> <size>\0" header)
func NewOidFromContent(content []byte) Oid {
	sum := hasher.Sum(content)
	var oid Oid
	copy(oid[:], sum.Bytes())
	return oid
}

// NewOidFromStr parses a 40-character hex-encoded SHA-1 into an Oid
func NewOidFromStr(s string) (Oid, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return NullOid, xerrors.Errorf("invalid oid %q: %w", s, err)
	}
	return NewOidFromBytes(raw)
}

// NewOidFromChars parses a hex-encoded SHA-1, provided as a byte slice of
// ASCII characters, into an Oid
func NewOidFromChars(b []byte) (Oid, error) {
	return NewOidFromStr(string(b))
}

// NewOidFromBytes builds an Oid from its raw (non-hex-encoded) 20-byte form
func NewOidFromBytes(raw []byte) (Oid, error) {
	if len(raw) != oidSize {
		return NullOid, xerrors.Errorf("oid must be %d bytes, got %d", oidSize, len(raw))
	}
	var oid Oid
	copy(oid[:], raw)
	return oid, nil
}

// NewOidFromHex builds an Oid from a raw (non-hex-encoded) 20-byte slice.
// Despite the name (kept for consistency with how tree/commit entries refer
// to this conversion), the input here is the binary digest, not a hex
// string; use NewOidFromStr for hex-encoded input.
func NewOidFromHex(raw []byte) (Oid, error) {
	return NewOidFromBytes(raw)
}
