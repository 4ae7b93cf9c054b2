// Package tlvcodec is the public entry point: Serialize/Deserialize a
// record against an explicit schema.TypeDescriptor, encoding and
// decoding the TLV wire format described in package tlv via the
// traversal engine in package traversal.
//
// Descriptors are caller-supplied (this module deliberately has no
// registration macro or reflection layer — see schema's package doc),
// which means, unlike the teacher's glint, a descriptor is not
// guaranteed well-formed just by having compiled. schema.Validate runs
// before every call, and the traversal/tlv packages are written in the
// teacher's trusted-input style (they panic on bounds violations rather
// than threading an error through every byte access, mirroring
// reader.go's "read out of bounds" panics) — exactly one place,
// the four entry points below, recovers and translates that into an
// InvalidType error rather than letting it escape to the caller.
package tlvcodec

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/climech/tlvcodec/alloc"
	"github.com/climech/tlvcodec/materialize"
	"github.com/climech/tlvcodec/schema"
	"github.com/climech/tlvcodec/tlv"
	"github.com/climech/tlvcodec/traversal"
)

// SerializeOptions is currently empty: the only tunable the wire format
// exposes, compression/encryption, is reserved and never emitted (see
// SPEC_FULL.md's Domain Stack section for why). It exists as a struct,
// rather than being dropped, so adding a real option later is not a
// breaking API change.
type SerializeOptions struct{}

// Serialize encodes the record at base, described by desc, into buf,
// returning the number of bytes written.
func Serialize(desc *schema.TypeDescriptor, base unsafe.Pointer, buf []byte, _ *SerializeOptions) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(InvalidType, fmt.Errorf("panic during serialize: %v", r))
		}
	}()

	if verr := schema.Validate(desc); verr != nil {
		return 0, newError(InvalidType, verr)
	}

	enc := tlv.NewEncoder(buf)
	if eerr := traversal.Encode(desc, base, enc); eerr != nil {
		if errors.Is(eerr, tlv.ErrBufferTooSmall) {
			return 0, newError(BufferTooSmall, eerr)
		}
		return 0, newError(InvalidType, eerr)
	}
	return enc.Len(), nil
}

// DeserializeOptions configures binary-record decode. A nil Allocator
// uses alloc.GC().
type DeserializeOptions struct {
	Allocator alloc.Allocator
}

// Deserialize decodes buf into the record at base, described by desc,
// allocating pointer strings and dynamic arrays through opts.Allocator
// (or alloc.GC() if opts is nil or its Allocator is nil).
//
// If decode fails partway through — whether traversal.Decode returns an
// error or a bounds panic is recovered below — every buffer already
// allocated through that Allocator is released via sink.Cleanup before
// Deserialize returns, so opts.Allocator never leaks a buffer out from
// under a failed call (spec.md §4.4(a)/§7). This matters most for
// alloc.Pooled, whose whole point is that every buffer eventually comes
// back through Deallocate.
func Deserialize(desc *schema.TypeDescriptor, base unsafe.Pointer, buf []byte, opts *DeserializeOptions) (err error) {
	var sink *materialize.Binary
	defer func() {
		if r := recover(); r != nil {
			err = newError(InvalidType, fmt.Errorf("panic during deserialize: %v", r))
		}
		if err != nil && sink != nil {
			sink.Cleanup()
		}
	}()

	if verr := schema.Validate(desc); verr != nil {
		return newError(InvalidType, verr)
	}

	var a alloc.Allocator
	if opts != nil {
		a = opts.Allocator
	}
	sink = materialize.NewBinary(a)
	if derr := traversal.Decode(desc, base, buf, sink); derr != nil {
		if errors.Is(derr, alloc.ErrAllocatorFailed) {
			return newError(AllocatorFailed, derr)
		}
		return newError(InvalidType, derr)
	}
	return nil
}

// DeserializeJSON decodes buf into a JSON document, described by desc,
// returning the rendered text.
func DeserializeJSON(desc *schema.TypeDescriptor, buf []byte) (text []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(InvalidType, fmt.Errorf("panic during deserialize: %v", r))
		}
	}()

	if verr := schema.Validate(desc); verr != nil {
		return nil, newError(InvalidType, verr)
	}

	sink := materialize.NewJSON()
	if derr := traversal.Decode(desc, nil, buf, sink); derr != nil {
		return nil, newError(InvalidType, derr)
	}
	return sink.Bytes(), nil
}

// DeserializeVisit decodes buf, described by desc, driving cb once per
// leaf value and once more, with a nil Field, after the document ends.
func DeserializeVisit(desc *schema.TypeDescriptor, buf []byte, userData any, cb materialize.VisitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(InvalidType, fmt.Errorf("panic during deserialize: %v", r))
		}
	}()

	if verr := schema.Validate(desc); verr != nil {
		return newError(InvalidType, verr)
	}

	sink := materialize.NewVisitor(userData, cb)
	if derr := traversal.Decode(desc, nil, buf, sink); derr != nil {
		return newError(InvalidType, derr)
	}
	return nil
}
