// Package packfile parses the binary pack stream produced by a remote's
// git-upload-pack endpoint and drives resolution of its reference-delta
// records against the object store.
package packfile

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1" //nolint:gosec // sha1 is the hash used by the pack trailer
	"errors"
	"io"

	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/binarytree/git-go/internal/delta"
)

// List of errors returned while parsing or resolving a pack
var (
	// ErrTooShort is returned when the input doesn't contain a full pack
	// header and trailer
	ErrTooShort = errors.New("response too short to be a pack")
	// ErrNoMarker is returned when the literal "PACK" marker can't be
	// found in the input
	ErrNoMarker = errors.New("no PACK marker found")
	// ErrChecksum is returned when the trailing 20-byte SHA-1 doesn't
	// match the SHA-1 of the preceding bytes
	ErrChecksum = errors.New("pack trailer does not match computed checksum")
	// ErrUnsupportedDelta is returned for an offset-delta record; this
	// implementation only resolves reference-deltas
	ErrUnsupportedDelta = errors.New("offset-deltas are not supported")
	// ErrUnknownType is returned for an object type code this
	// implementation doesn't recognize
	ErrUnknownType = errors.New("unknown pack object type")
	// ErrMissingBase is returned by Unpack when the delta resolution loop
	// stalls with deltas left whose base never became available
	ErrMissingBase = errors.New("delta resolution stalled: missing base object")
)

// marker is the literal 4-byte sequence that starts a pack stream.
var marker = []byte("PACK")

// trailerSize is the length, in bytes, of the pack's trailing SHA-1.
const trailerSize = 20

// baseHashSize is the length, in bytes, of a reference-delta's base hash.
const baseHashSize = 20

// headerSize is the length, in bytes, of the fixed PACK/version/count
// header that follows the marker.
const headerSize = 8

// Record is one object entry read from a pack stream: either a stored
// object's decompressed payload, or a reference-delta's base hash and
// delta program.
type Record struct {
	Kind object.Type
	// Payload is the decompressed content for Kind in
	// {TypeCommit,TypeTree,TypeBlob}, or the delta program for
	// Kind == object.ObjectDeltaRef.
	Payload []byte
	// BaseHash is only meaningful when Kind == object.ObjectDeltaRef.
	BaseHash ginternals.Oid
}

// Parse locates the pack stream inside body (skipping any protocol framing
// bytes that precede the literal "PACK" marker), verifies its trailing
// SHA-1 checksum, and decodes every object record it contains.
func Parse(body []byte) ([]Record, error) {
	idx := bytes.Index(body, marker)
	if idx < 0 {
		return nil, ErrNoMarker
	}
	pack := body[idx:]
	if len(pack) < len(marker)+headerSize+trailerSize {
		return nil, ErrTooShort
	}

	trailerStart := len(pack) - trailerSize
	sum := sha1.Sum(pack[:trailerStart]) //nolint:gosec
	if !bytes.Equal(sum[:], pack[trailerStart:]) {
		return nil, xerrors.Errorf("pack trailer mismatch: %w", ErrChecksum)
	}

	count := uint32(pack[11]) | uint32(pack[10])<<8 | uint32(pack[9])<<16 | uint32(pack[8])<<24
	remaining := pack[len(marker)+headerSize : trailerStart]

	records := make([]Record, 0, count)
	for i := uint32(0); i < count; i++ {
		typeCode, size, n, err := readObjectHeader(remaining)
		if err != nil {
			return nil, xerrors.Errorf("object %d header: %w", i, err)
		}
		remaining = remaining[n:]

		switch typeCode {
		case 1, 2, 3: // Commit, Tree, Blob
			payload, n, err := readZlibPayload(remaining, size)
			if err != nil {
				return nil, xerrors.Errorf("object %d payload: %w", i, err)
			}
			remaining = remaining[n:]
			records = append(records, Record{Kind: object.Type(typeCode), Payload: payload})

		case 6: // OffsetDelta
			return nil, xerrors.Errorf("object %d: %w", i, ErrUnsupportedDelta)

		case 7: // RefDelta
			if len(remaining) < baseHashSize {
				return nil, xerrors.Errorf("object %d: truncated base hash: %w", i, ErrTooShort)
			}
			baseHash, err := ginternals.NewOidFromBytes(remaining[:baseHashSize])
			if err != nil {
				return nil, xerrors.Errorf("object %d: invalid base hash: %w", i, err)
			}
			remaining = remaining[baseHashSize:]

			payload, n, err := readZlibPayload(remaining, size)
			if err != nil {
				return nil, xerrors.Errorf("object %d delta payload: %w", i, err)
			}
			remaining = remaining[n:]
			records = append(records, Record{Kind: object.ObjectDeltaRef, Payload: payload, BaseHash: baseHash})

		default:
			return nil, xerrors.Errorf("object %d: type code %d: %w", i, typeCode, ErrUnknownType)
		}
	}
	return records, nil
}

// readObjectHeader decodes the variable-length per-object size header:
// byte 0 carries a continuation flag (bit 7), a 3-bit type code (bits
// 6-4) and the low 4 bits of size (bits 3-0); each following continuation
// byte contributes 7 more size bits, starting at shift 4.
func readObjectHeader(data []byte) (typeCode byte, size uint64, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	b := data[0]
	consumed = 1
	typeCode = (b >> 4) & 0x7
	size = uint64(b & 0x0F)

	shift := uint(4)
	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, io.ErrUnexpectedEOF
		}
		b = data[consumed]
		consumed++
		size |= uint64(b&0x7F) << shift
		shift += 7
	}
	return typeCode, size, consumed, nil
}

// readZlibPayload decompresses a single zlib stream from the start of
// data, expecting exactly size bytes of output, and reports exactly how
// many input bytes the stream consumed. bytes.Reader implements
// io.ByteReader, which flate relies on to avoid over-reading from the
// underlying slice (object records have no framing between them, so
// over-reading would corrupt the next record).
func readZlibPayload(data []byte, size uint64) (payload []byte, consumed int, err error) {
	br := bytes.NewReader(data)
	before := br.Len()

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, 0, xerrors.Errorf("could not open zlib stream: %w", err)
	}

	payload = make([]byte, size)
	if _, err := io.ReadFull(zr, payload); err != nil {
		return nil, 0, xerrors.Errorf("could not decompress %d bytes: %w", size, err)
	}

	var extra [1]byte
	n, err := zr.Read(extra[:])
	if n != 0 || !errors.Is(err, io.EOF) {
		return nil, 0, xerrors.Errorf("decompressed payload exceeds declared size %d", size)
	}
	if err := zr.Close(); err != nil {
		return nil, 0, xerrors.Errorf("invalid zlib stream: %w", err)
	}

	return payload, before - br.Len(), nil
}

// Unpack persists every non-delta record directly, then resolves deferred
// reference-deltas in a queue-based loop: each pass applies every delta
// whose base has become resolvable (an earlier non-delta, an
// already-resolved delta, or an object already present in b), looping
// until the queue is empty or a full pass makes no progress, which is a
// fatal ErrMissingBase.
func Unpack(b backend.Backend, records []Record) error {
	pending := make([]Record, 0, len(records))

	for i, r := range records {
		if r.Kind == object.ObjectDeltaRef {
			pending = append(pending, r)
			continue
		}
		if _, err := b.WriteObject(object.New(r.Kind, r.Payload)); err != nil {
			return xerrors.Errorf("object %d: could not persist: %w", i, err)
		}
	}

	for len(pending) > 0 {
		next := pending[:0]
		progressed := false

		for _, r := range pending {
			base, err := b.Object(r.BaseHash)
			if err != nil {
				if errors.Is(err, ginternals.ErrObjectNotFound) {
					next = append(next, r)
					continue
				}
				return xerrors.Errorf("could not look up delta base %s: %w", r.BaseHash.String(), err)
			}

			resolved, err := delta.Apply(base.Bytes(), r.Payload)
			if err != nil {
				return xerrors.Errorf("could not apply delta against base %s: %w", r.BaseHash.String(), err)
			}
			if _, err := b.WriteObject(object.New(base.Type(), resolved)); err != nil {
				return xerrors.Errorf("could not persist resolved delta: %w", err)
			}
			progressed = true
		}

		if !progressed {
			return xerrors.Errorf("%d delta(s) left unresolved: %w", len(next), ErrMissingBase)
		}
		pending = next
	}
	return nil
}
