package tlv

import "encoding/binary"

// Visitor receives the pre-order stream of TLV element events Decode
// produces. NESTED and NESTED_LIST elements are announced with
// VisitNestedStart before Decode recurses into their value region at
// level+1, and with VisitNestedEnd once every element contained in that
// value region has been visited — mirroring the teacher's
// VisitStructStart/VisitStructEnd bracketing in walker.go. FIELD and LIST
// elements (leaves, from the traversal engine's point of view) are
// delivered with VisitField.
//
// idx is the 0-based sibling index of the element at its level; level is
// the nesting depth (0 at the top of the document). Returning a non-nil
// error from any method aborts the walk; Decode returns that error
// unchanged so a Visitor can signal its own structural errors.
type Visitor interface {
	VisitField(idx, level int, tag Tag, value []byte) error
	VisitNestedStart(idx, level int, tag Tag, length uint32) error
	VisitNestedEnd(idx, level int, tag Tag) error
}

// MaxDepth bounds how deeply Decode will recurse into NESTED/NESTED_LIST
// payloads. It matches schema.MaxDepth; duplicated here (rather than
// imported) so this package has no dependency on schema, keeping the
// wire codec usable standalone.
const MaxDepth = 32

// MaxElements bounds the total number of elements (at any level) a
// single Decode call will visit, guarding against pathological inputs
// claiming enormous nesting without actually containing that much data.
const MaxElements = 1024

// Decode streams buf as a flat pre-order sequence of TLV element events,
// recursing into NESTED and NESTED_LIST values. It never allocates: all
// value slices handed to the Visitor reference buf directly.
func Decode(buf []byte, v Visitor) error {
	return DecodeWithLimits(buf, v, MaxDepth, MaxElements)
}

// DecodeWithLimits is Decode with caller-chosen depth/element ceilings,
// the knob traversal.Limits exposes for callers decoding untrusted input
// who want tighter bounds than the package defaults — the same role
// glint's DecodeLimits/DefaultLimits plays for its own Unmarshal.
func DecodeWithLimits(buf []byte, v Visitor, maxDepth, maxElements int) error {
	budget := maxElements
	_, err := decodeLevel(buf, 0, v, &budget, maxDepth)
	return err
}

func decodeLevel(buf []byte, level int, v Visitor, budget *int, maxDepth int) (int, error) {
	if level > maxDepth {
		return 0, ErrInvalidType
	}

	pos := 0
	idx := 0
	for pos < len(buf) {
		if len(buf)-pos < HeaderSize {
			return 0, ErrInvalidType
		}

		tag := Tag(binary.BigEndian.Uint16(buf[pos:]))
		length := binary.BigEndian.Uint32(buf[pos+2:])
		pos += HeaderSize

		if uint32(len(buf)-pos) < length {
			return 0, ErrInvalidType
		}
		value := buf[pos : pos+int(length)]
		pos += int(length)

		if !knownTag(tag) {
			// Forward-compatible: a tag we've never heard of is treated
			// like a reserved one, skipped without consulting the
			// visitor, same as compression/encryption placeholders.
			idx++
			continue
		}

		if reservedTag(tag) {
			idx++
			continue
		}

		*budget--
		if *budget < 0 {
			return 0, ErrInvalidType
		}

		switch tag {
		case Nested, NestedList:
			if err := v.VisitNestedStart(idx, level, tag, length); err != nil {
				return 0, err
			}
			if _, err := decodeLevel(value, level+1, v, budget, maxDepth); err != nil {
				return 0, err
			}
			if err := v.VisitNestedEnd(idx, level, tag); err != nil {
				return 0, err
			}

		default: // Field, List
			if err := v.VisitField(idx, level, tag, value); err != nil {
				return 0, err
			}
		}

		idx++
	}

	return pos, nil
}
