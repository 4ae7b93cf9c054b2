package traversal

import (
	"fmt"
	"unsafe"

	"github.com/climech/tlvcodec/schema"
	"github.com/climech/tlvcodec/tlv"
)

// Decode walks desc against the TLV element stream in buf, driving sink.
// base is the address of the destination record for the binary target,
// or nil for the JSON and custom-visitor targets (which never
// dereference the pointers this engine computes).
//
// The hard part of this walk is that encode always writes fields in
// strict descriptor order and omits an absent Optional field's element
// entirely — no placeholder, no zero-length marker. That means decode
// does not need to align against some abstract global event index the
// way a fully generic TLV-to-schema matcher would: it can simply replay
// the same presence decision encode made, field by field, advancing past
// any field whose discriminator sibling (already decoded, and cached by
// this walk) says "absent" without waiting for a wire event that will
// never arrive, and only pausing to wait for a real event once it
// reaches a field that is actually on the wire.
//
// Struct-array elements complicate this further: a NESTED_LIST's value is
// the flat concatenation of each element's own field elements with no
// per-element framing at all, so element boundaries are inferred purely
// by descriptor exhaustion (when an element's fields are all consumed,
// the next event — if the sibling count says another element remains —
// belongs to the next element), not by anything on the wire.
func Decode(desc *schema.TypeDescriptor, base unsafe.Pointer, buf []byte, sink Sink) error {
	return DecodeWithLimits(desc, base, buf, sink, DefaultLimits)
}

// DecodeWithLimits is Decode with caller-chosen depth/element bounds
// instead of DefaultLimits.
func DecodeWithLimits(desc *schema.TypeDescriptor, base unsafe.Pointer, buf []byte, sink Sink, limits Limits) error {
	d := &decodeState{sink: sink}
	root := newFrame(desc, nil, base)
	d.stack = append(d.stack, root)

	if err := sink.StructStart(nil, desc, base); err != nil {
		return err
	}
	if err := d.settleTop(); err != nil {
		return err
	}
	if err := tlv.DecodeWithLimits(buf, d, limits.MaxDepth, limits.MaxElements); err != nil {
		return err
	}
	if len(d.stack) != 0 {
		return fmt.Errorf("traversal: input ended with %d unresolved field(s) still expected", pendingCount(d.stack))
	}
	return sink.End()
}

func pendingCount(stack []*frame) int {
	fr := stack[len(stack)-1]
	if fr.kind == kStruct {
		return len(fr.desc.Fields) - fr.fieldIdx
	}
	return fr.remaining
}

type frameKind int

const (
	kStruct frameKind = iota
	kArray
)

type frame struct {
	kind frameKind

	// kStruct
	desc     *schema.TypeDescriptor
	field    *schema.FieldDescriptor // nil only for the document root
	base     unsafe.Pointer
	fieldIdx int
	intVals  map[uintptr]int64
	strVals  map[uintptr]string
	arr      *frame // set iff this struct is one element of an array

	// kArray
	elemDesc  *schema.TypeDescriptor
	elemBase  unsafe.Pointer
	elemSize  uintptr
	remaining int
	index     int
}

func newFrame(desc *schema.TypeDescriptor, field *schema.FieldDescriptor, base unsafe.Pointer) *frame {
	return &frame{
		kind:    kStruct,
		desc:    desc,
		field:   field,
		base:    base,
		intVals: make(map[uintptr]int64),
		strVals: make(map[uintptr]string),
	}
}

type decodeState struct {
	stack []*frame
	sink  Sink
}

func (d *decodeState) top() (*frame, error) {
	if len(d.stack) == 0 {
		return nil, fmt.Errorf("traversal: unexpected element beyond schema")
	}
	return d.stack[len(d.stack)-1], nil
}

func (d *decodeState) VisitField(idx, level int, tag tlv.Tag, value []byte) error {
	fr, err := d.top()
	if err != nil {
		return err
	}
	if fr.kind != kStruct || fr.fieldIdx >= len(fr.desc.Fields) {
		return fmt.Errorf("traversal: unexpected element, schema exhausted")
	}
	f := &fr.desc.Fields[fr.fieldIdx]
	if f.Kind == schema.Struct || (f.Kind == schema.Array && f.Struct != nil) {
		return fmt.Errorf("traversal: field %q expected a nested element, got a leaf", f.Name)
	}
	fr.fieldIdx++

	data := fieldPtr(fr.base, f)
	cacheScalar(fr, f, value)
	if err := d.sink.Leaf(f, fr.desc, data, value); err != nil {
		return err
	}
	return d.settleTop()
}

func (d *decodeState) VisitNestedStart(idx, level int, tag tlv.Tag, length uint32) error {
	fr, err := d.top()
	if err != nil {
		return err
	}
	if fr.kind != kStruct || fr.fieldIdx >= len(fr.desc.Fields) {
		return fmt.Errorf("traversal: unexpected nested element, schema exhausted")
	}
	f := &fr.desc.Fields[fr.fieldIdx]

	switch tag {
	case tlv.Nested:
		if f.Kind != schema.Struct {
			return fmt.Errorf("traversal: field %q is not a struct", f.Name)
		}
		fr.fieldIdx++
		data := fieldPtr(fr.base, f)
		if err := d.sink.StructStart(f, f.Struct, data); err != nil {
			return err
		}
		d.stack = append(d.stack, newFrame(f.Struct, f, data))
		return d.settleTop()

	case tlv.NestedList:
		if f.Kind != schema.Array || f.Struct == nil {
			return fmt.Errorf("traversal: field %q is not a struct array", f.Name)
		}
		fr.fieldIdx++
		count := resolveCount(fr, f)
		elemBase, err := d.sink.ArrayStart(f, fr.base, count)
		if err != nil {
			return err
		}
		arrFr := &frame{kind: kArray, field: f, elemDesc: f.Struct, elemBase: elemBase, elemSize: f.Size, remaining: count}
		d.stack = append(d.stack, arrFr)
		if count > 0 {
			data := elemPtr(elemBase, 0, f.Size)
			if err := d.sink.StructStart(f, f.Struct, data); err != nil {
				return err
			}
			child := newFrame(f.Struct, f, data)
			child.arr = arrFr
			d.stack = append(d.stack, child)
		}
		return d.settleTop()

	default:
		return fmt.Errorf("traversal: unexpected nested tag %d", tag)
	}
}

func (d *decodeState) VisitNestedEnd(idx, level int, tag tlv.Tag) error {
	// settleTop pops struct and array frames proactively the moment their
	// fields/elements are exhausted, which always happens before the
	// matching VisitNestedEnd arrives (tlv.Decode fully drains a nested
	// value's child events before announcing its end). Nothing to do here.
	return nil
}

// settleTop advances the frame stack past every field that contributes
// no wire event — an Optional field whose discriminator doesn't match,
// or a struct/array frame whose fields/elements are already exhausted —
// stopping as soon as it reaches a field that requires a real incoming
// event, or the stack empties.
func (d *decodeState) settleTop() error {
	for len(d.stack) > 0 {
		fr := d.stack[len(d.stack)-1]

		if fr.kind == kArray {
			// By construction this frame is only ever the top of stack
			// once its active element frame has been popped, at which
			// point remaining has already been decremented to 0.
			if err := d.sink.ArrayEnd(fr.field); err != nil {
				return err
			}
			d.stack = d.stack[:len(d.stack)-1]
			continue
		}

		if fr.fieldIdx >= len(fr.desc.Fields) {
			if err := d.sink.StructEnd(fr.field, fr.desc); err != nil {
				return err
			}
			d.stack = d.stack[:len(d.stack)-1]

			if fr.arr != nil {
				arrFr := fr.arr
				arrFr.remaining--
				arrFr.index++
				if arrFr.remaining > 0 {
					data := elemPtr(arrFr.elemBase, arrFr.index, arrFr.elemSize)
					if err := d.sink.StructStart(arrFr.field, arrFr.elemDesc, data); err != nil {
						return err
					}
					child := newFrame(arrFr.elemDesc, arrFr.field, data)
					child.arr = arrFr
					d.stack = append(d.stack, child)
				}
			}
			continue
		}

		f := &fr.desc.Fields[fr.fieldIdx]
		if f.Opts.Has(schema.Optional) && !presentDecode(fr, f) {
			fr.fieldIdx++
			continue
		}
		return nil
	}
	return nil
}

func presentDecode(fr *frame, f *schema.FieldDescriptor) bool {
	d := f.Discriminator
	switch d.TagKind {
	case schema.Int32:
		v, ok := fr.intVals[d.TagOffset]
		return ok && int32(v) == d.TagValueInt
	case schema.String:
		v, ok := fr.strVals[d.TagOffset]
		return ok && v == d.TagValueString
	default:
		return false
	}
}

func resolveCount(fr *frame, f *schema.FieldDescriptor) int {
	if v, ok := fr.intVals[f.Array.SizeFieldOffset]; ok {
		return int(v)
	}
	if fr.base != nil {
		return int(readUint(unsafe.Add(fr.base, f.Array.SizeFieldOffset), f.Array.SizeFieldSize))
	}
	return 0
}

// cacheScalar records a just-decoded leaf's value so later sibling
// fields can resolve Optional presence and Array element counts without
// needing a backing record (the JSON and custom-visitor decode targets
// have none).
func cacheScalar(fr *frame, f *schema.FieldDescriptor, value []byte) {
	switch f.Kind {
	case schema.Int8:
		if len(value) >= 1 {
			fr.intVals[f.Offset] = int64(int8(value[0]))
		}
	case schema.UInt8, schema.Bool:
		if len(value) >= 1 {
			fr.intVals[f.Offset] = int64(value[0])
		}
	case schema.Int16:
		if len(value) >= 2 {
			fr.intVals[f.Offset] = int64(*(*int16)(unsafe.Pointer(&value[0])))
		}
	case schema.UInt16:
		if len(value) >= 2 {
			fr.intVals[f.Offset] = int64(*(*uint16)(unsafe.Pointer(&value[0])))
		}
	case schema.Int32:
		if len(value) >= 4 {
			fr.intVals[f.Offset] = int64(*(*int32)(unsafe.Pointer(&value[0])))
		}
	case schema.UInt32:
		if len(value) >= 4 {
			fr.intVals[f.Offset] = int64(*(*uint32)(unsafe.Pointer(&value[0])))
		}
	case schema.Int64:
		if len(value) >= 8 {
			fr.intVals[f.Offset] = *(*int64)(unsafe.Pointer(&value[0]))
		}
	case schema.UInt64:
		if len(value) >= 8 {
			fr.intVals[f.Offset] = int64(*(*uint64)(unsafe.Pointer(&value[0])))
		}
	case schema.String:
		fr.strVals[f.Offset] = decodedStringValue(value)
	}
}

// decodedStringValue strips the synthetic/inline NUL terminator a wire
// string value carries (when non-empty) to recover the logical content,
// for both fixed and pointer string representations.
func decodedStringValue(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	if value[len(value)-1] == 0 {
		return string(value[:len(value)-1])
	}
	return string(value)
}
