// Package tlv implements the low-level Type-Length-Value wire codec:
// a fixed 6-byte element header (2-byte big-endian tag, 4-byte
// big-endian length) followed by length bytes of value, with NESTED and
// NESTED_LIST values themselves being concatenated sequences of further
// TLV elements.
//
// This package knows nothing about record layout or field descriptors —
// that is the traversal package's job. tlv only knows how to write one
// element at a time into a caller-owned buffer, and how to stream a
// buffer back out as a pre-order sequence of element events, recursing
// into NESTED/NESTED_LIST payloads and silently skipping reserved tags.
//
// The design mirrors the teacher's walker.go Visitor (VisitField /
// VisitStructStart / VisitStructEnd bracketing a recursive walk), adapted
// to the fixed tag+length framing spec.md §6.1 mandates instead of
// glint's self-describing varint schema.
package tlv

import "errors"

// Tag identifies the shape of an element's value.
type Tag uint16

const (
	Field            Tag = 0x01
	Nested           Tag = 0x02
	List             Tag = 0x03
	NestedList       Tag = 0x04
	CompressedValue  Tag = 0x05
	EncryptedValue   Tag = 0x06
	CompressedNested Tag = 0x07
	EncryptedNested  Tag = 0x08
)

// HeaderSize is the fixed byte size of an element's tag+length header.
const HeaderSize = 2 + 4

// ErrBufferTooSmall is returned by Encoder methods when the destination
// buffer has insufficient remaining capacity.
var ErrBufferTooSmall = errors.New("tlv: buffer too small")

// ErrInvalidType is returned when a buffer cannot be parsed as a
// well-formed TLV stream (truncated header, truncated value, or a
// nesting depth beyond schema.MaxDepth).
var ErrInvalidType = errors.New("tlv: invalid type")

// reservedTag reports whether a tag is one of the reserved,
// not-yet-implemented compression/encryption markers. Reserved tags are
// never emitted by Encoder but must be silently skipped on decode.
func reservedTag(t Tag) bool {
	switch t {
	case CompressedValue, EncryptedValue, CompressedNested, EncryptedNested:
		return true
	default:
		return false
	}
}

func knownTag(t Tag) bool {
	switch t {
	case Field, Nested, List, NestedList,
		CompressedValue, EncryptedValue, CompressedNested, EncryptedNested:
		return true
	default:
		return false
	}
}
