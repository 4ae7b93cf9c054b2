package tlv

import "encoding/binary"

// Encoder writes TLV elements sequentially into a caller-owned,
// fixed-capacity destination buffer. It never grows or reallocates the
// buffer (spec.md §4.2: "buffer checks precede every write") — every
// write method returns ErrBufferTooSmall instead.
//
// Struct nesting is supported by reserving header space with BeginNested,
// letting the caller write the nested body directly into the same
// buffer (exactly as the original serializer.c's s_tlv_encode_field
// writes "directly into buffer" for FIELD_TYPE_STRUCT), and patching the
// reserved length once the body is known via EndNested.
type Encoder struct {
	buf []byte
	pos int
}

// NewEncoder wraps a destination buffer. len(buf) is treated as the
// buffer's capacity; Bytes too small to report via cap mismatches
// surface as ErrBufferTooSmall on the first write that doesn't fit.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Len reports the number of bytes written so far.
func (e *Encoder) Len() int { return e.pos }

// Bytes returns the written prefix of the destination buffer.
func (e *Encoder) Bytes() []byte { return e.buf[:e.pos] }

func (e *Encoder) remaining() int { return len(e.buf) - e.pos }

// WriteElement writes a complete tag+length+value element whose value is
// already fully materialized (used for FIELD and LIST elements, and for
// zero-length presence markers).
func (e *Encoder) WriteElement(tag Tag, value []byte) error {
	if e.remaining() < HeaderSize+len(value) {
		return ErrBufferTooSmall
	}
	e.writeHeader(tag, uint32(len(value)))
	e.pos += copy(e.buf[e.pos:], value)
	return nil
}

// BeginNested reserves header space for a NESTED or NESTED_LIST element
// and returns a marker identifying it. The caller must follow with
// EndNested once the nested payload has been written directly into the
// encoder (via further WriteElement/BeginNested calls) to patch in the
// element's true length.
func (e *Encoder) BeginNested(tag Tag) (marker int, err error) {
	if e.remaining() < HeaderSize {
		return 0, ErrBufferTooSmall
	}
	marker = e.pos
	e.writeHeader(tag, 0) // length patched in EndNested
	return marker, nil
}

// EndNested patches the length field reserved by BeginNested with the
// number of bytes written since then.
func (e *Encoder) EndNested(marker int) {
	length := uint32(e.pos - (marker + HeaderSize))
	binary.BigEndian.PutUint32(e.buf[marker+2:], length)
}

func (e *Encoder) writeHeader(tag Tag, length uint32) {
	binary.BigEndian.PutUint16(e.buf[e.pos:], uint16(tag))
	binary.BigEndian.PutUint32(e.buf[e.pos+2:], length)
	e.pos += HeaderSize
}
