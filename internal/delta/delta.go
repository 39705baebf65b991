// Package delta interprets the copy/insert instruction language used by
// git's reference-delta packfile records to reconstruct a target object
// from a base object.
package delta

import (
	"errors"

	"golang.org/x/xerrors"
)

// List of errors returned while decoding or applying a delta program
var (
	// ErrTruncated is returned when a delta program ends in the middle of
	// a varint or an instruction's operand bytes
	ErrTruncated = errors.New("truncated delta program")
	// ErrUnknownInstruction is returned for the reserved 0x00 opcode
	ErrUnknownInstruction = errors.New("unknown delta instruction")
	// ErrOutOfRange is returned when a Copy instruction references bytes
	// outside of the base payload
	ErrOutOfRange = errors.New("delta copy instruction out of range")
	// ErrSizeMismatch is returned when the base length doesn't match the
	// delta's declared source size, or the output length doesn't match
	// its declared target size
	ErrSizeMismatch = errors.New("delta size mismatch")
)

// zeroCopySize is the size a Copy instruction uses when its encoded size
// is 0; the canonical value, not the 0x1000 used by some older tooling.
const zeroCopySize = 0x10000

// Apply reconstructs a target payload by interpreting program against
// base. It returns ErrSizeMismatch if len(base) doesn't match the
// program's declared source size, or if the reconstructed output doesn't
// match the program's declared target size.
func Apply(base, program []byte) ([]byte, error) {
	sourceSize, n, err := DecodeVarint(program)
	if err != nil {
		return nil, xerrors.Errorf("could not read source size: %w", err)
	}
	program = program[n:]
	if sourceSize != uint64(len(base)) {
		return nil, xerrors.Errorf("base is %d bytes, delta expects %d: %w", len(base), sourceSize, ErrSizeMismatch)
	}

	targetSize, n, err := DecodeVarint(program)
	if err != nil {
		return nil, xerrors.Errorf("could not read target size: %w", err)
	}
	program = program[n:]

	out := make([]byte, 0, targetSize)
	for len(program) > 0 {
		opcode := program[0]
		program = program[1:]

		switch {
		case opcode&0x80 != 0:
			offset, size, rest, err := decodeCopy(opcode, program)
			if err != nil {
				return nil, err
			}
			program = rest

			if offset < 0 || size < 0 || offset+size > len(base) {
				return nil, xerrors.Errorf("copy(offset=%d, size=%d) exceeds base of %d bytes: %w", offset, size, len(base), ErrOutOfRange)
			}
			out = append(out, base[offset:offset+size]...)

		case opcode != 0:
			size := int(opcode & 0x7F)
			if size > len(program) {
				return nil, xerrors.Errorf("insert of %d bytes truncated: %w", size, ErrTruncated)
			}
			out = append(out, program[:size]...)
			program = program[size:]

		default:
			return nil, xerrors.Errorf("opcode 0x00: %w", ErrUnknownInstruction)
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, xerrors.Errorf("delta produced %d bytes, expected %d: %w", len(out), targetSize, ErrSizeMismatch)
	}
	return out, nil
}

// decodeCopy reads the offset and size operand bytes of a Copy
// instruction (MSB of opcode set). The low 4 bits of opcode select which
// of 4 little-endian offset bytes are present; bits 4-6 select which of 3
// little-endian size bytes are present. A size that decodes to 0 is
// replaced with zeroCopySize, per the canonical format.
func decodeCopy(opcode byte, program []byte) (offset, size int, rest []byte, err error) {
	var rawOffset, rawSize uint32
	for bit := 0; bit < 4; bit++ {
		if opcode&(1<<bit) == 0 {
			continue
		}
		if len(program) == 0 {
			return 0, 0, nil, xerrors.Errorf("copy offset byte %d: %w", bit, ErrTruncated)
		}
		rawOffset |= uint32(program[0]) << (8 * bit)
		program = program[1:]
	}
	for bit := 0; bit < 3; bit++ {
		if opcode&(1<<(4+bit)) == 0 {
			continue
		}
		if len(program) == 0 {
			return 0, 0, nil, xerrors.Errorf("copy size byte %d: %w", bit, ErrTruncated)
		}
		rawSize |= uint32(program[0]) << (8 * bit)
		program = program[1:]
	}
	if rawSize == 0 {
		rawSize = zeroCopySize
	}
	return int(rawOffset), int(rawSize), program, nil
}

// DecodeVarint decodes the 7-bits-per-byte, MSB-continuation integer
// encoding used by delta program headers and pack object headers. It
// returns the decoded value and the number of bytes consumed.
func DecodeVarint(data []byte) (value uint64, n int, err error) {
	var shift uint
	for {
		if n >= len(data) {
			return 0, 0, xerrors.Errorf("varint: %w", ErrTruncated)
		}
		b := data[n]
		n++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, n, nil
		}
		shift += 7
	}
}
