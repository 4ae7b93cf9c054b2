// Package materialize implements the three decode targets spec.md §4.4
// describes (binary record, JSON text, custom visitor callback) as
// traversal.Sink implementations, so the traversal engine's lockstep
// descriptor/wire walk never needs to know which target it is feeding.
package materialize

import (
	"fmt"
	"unsafe"

	"github.com/climech/tlvcodec/alloc"
	"github.com/climech/tlvcodec/schema"
)

// Binary materializes a decoded document directly into an in-memory
// record matching the TypeDescriptor's layout, the way s_tlv_decode
// writes straight into the caller's destination struct in the original
// serializer. Pointer strings and dynamic arrays are allocated through
// the supplied alloc.Allocator; everything else (primitives, Blob, fixed
// strings, static arrays, nested structs) is written in place at the
// address the traversal engine computed, with no allocation at all. The
// one exception is an ArrayBuiltinString array: static or dynamic, each
// of its elements is stored as a pointer string allocated through Alloc.
//
// Every buffer obtained from Alloc is also recorded in allocated, so that
// a caller whose traversal.Decode call fails partway through can roll the
// whole decode back via Cleanup instead of leaking those buffers out of
// Alloc — the one thing that matters for alloc.Pooled, whose buffers are
// only ever reclaimed if Deallocate is actually called.
type Binary struct {
	Alloc alloc.Allocator

	allocated [][]byte
}

// NewBinary returns a Binary materializer. A nil Alloc uses alloc.GC().
func NewBinary(a alloc.Allocator) *Binary {
	if a == nil {
		a = alloc.GC()
	}
	return &Binary{Alloc: a}
}

func (b *Binary) allocate(n int) ([]byte, error) {
	buf, err := b.Alloc.Allocate(n)
	if err != nil {
		return nil, err
	}
	b.allocated = append(b.allocated, buf)
	return buf, nil
}

// Cleanup releases every buffer this materializer has allocated through
// Alloc, in the same Allocator they came from. Call it when a decode
// fails partway through — spec.md §4.4(a)/§7's "on failure, deallocate
// any string slots already materialized" — so alloc.Pooled buffers go
// back to their pool instead of leaking out of it.
func (b *Binary) Cleanup() {
	for _, buf := range b.allocated {
		b.Alloc.Deallocate(buf)
	}
	b.allocated = nil
}

func (b *Binary) StructStart(field *schema.FieldDescriptor, nested *schema.TypeDescriptor, data unsafe.Pointer) error {
	return nil
}

func (b *Binary) StructEnd(field *schema.FieldDescriptor, nested *schema.TypeDescriptor) error {
	return nil
}

func (b *Binary) ArrayStart(field *schema.FieldDescriptor, parentData unsafe.Pointer, count int) (unsafe.Pointer, error) {
	slot := unsafe.Add(parentData, field.Offset)
	if !field.Opts.Has(schema.ArrayDynamic) {
		return slot, nil // inline region starts right at the field's own offset
	}
	if count == 0 {
		*(*unsafe.Pointer)(slot) = nil
		return nil, nil
	}
	buf, err := b.allocate(count * int(field.Size))
	if err != nil {
		return nil, fmt.Errorf("materialize: allocating array %q: %w", field.Name, err)
	}
	base := unsafe.Pointer(unsafe.SliceData(buf))
	*(*unsafe.Pointer)(slot) = base
	return base, nil
}

func (b *Binary) ArrayEnd(field *schema.FieldDescriptor) error { return nil }

func (b *Binary) Leaf(field *schema.FieldDescriptor, parent *schema.TypeDescriptor, data unsafe.Pointer, value []byte) error {
	switch field.Kind {
	case schema.Blob:
		dst := unsafe.Slice((*byte)(data), field.Size)
		clear(dst)
		copy(dst, value)
		return nil

	case schema.String:
		return b.leafString(field, data, value)

	case schema.Array:
		return b.leafArray(field, data, value)

	default: // numeric primitives, Bool: raw memcpy, no conversion
		size := int(scalarSize(field.Kind))
		dst := unsafe.Slice((*byte)(data), size)
		clear(dst)
		copy(dst, value)
		return nil
	}
}

func (b *Binary) leafString(field *schema.FieldDescriptor, data unsafe.Pointer, value []byte) error {
	if field.Opts.Has(schema.StringFixed) {
		dst := unsafe.Slice((*byte)(data), field.Size)
		clear(dst)
		copy(dst, value)
		return nil
	}
	if len(value) == 0 {
		*(*unsafe.Pointer)(data) = nil
		return nil
	}
	buf, err := b.allocate(len(value))
	if err != nil {
		return fmt.Errorf("materialize: allocating string %q: %w", field.Name, err)
	}
	copy(buf, value)
	*(*unsafe.Pointer)(data) = unsafe.Pointer(unsafe.SliceData(buf))
	return nil
}

func (b *Binary) leafArray(field *schema.FieldDescriptor, data unsafe.Pointer, value []byte) error {
	// Struct-array elements never reach Leaf; only builtin-kind arrays do,
	// as one whole-payload call.
	var count int
	switch field.Array.BuiltinKind {
	case schema.ArrayBuiltinString:
		count = countNULSegments(value)
	default:
		if field.Size > 0 {
			count = len(value) / int(field.Size)
		}
	}

	slot := data
	var base unsafe.Pointer
	if field.Opts.Has(schema.ArrayDynamic) {
		if count == 0 {
			*(*unsafe.Pointer)(slot) = nil
			return nil
		}
		buf, err := b.allocate(count * int(field.Size))
		if err != nil {
			return fmt.Errorf("materialize: allocating array %q: %w", field.Name, err)
		}
		base = unsafe.Pointer(unsafe.SliceData(buf))
		*(*unsafe.Pointer)(slot) = base
	} else {
		base = slot
	}

	if field.Array.BuiltinKind == schema.ArrayBuiltinString {
		segs := splitNULSegments(value)
		for i, seg := range segs {
			elem := unsafe.Add(base, uintptr(i)*field.Size)
			buf, err := b.allocate(len(seg) + 1)
			if err != nil {
				return fmt.Errorf("materialize: allocating array %q element %d: %w", field.Name, i, err)
			}
			copy(buf, seg)
			*(*unsafe.Pointer)(elem) = unsafe.Pointer(unsafe.SliceData(buf))
		}
		return nil
	}

	dst := unsafe.Slice((*byte)(base), count*int(field.Size))
	copy(dst, value)
	return nil
}

func scalarSize(k schema.FieldKind) uintptr {
	switch k {
	case schema.Int8, schema.UInt8, schema.Bool:
		return 1
	case schema.Int16, schema.UInt16:
		return 2
	case schema.Int32, schema.UInt32, schema.Float32:
		return 4
	case schema.Int64, schema.UInt64, schema.Float64:
		return 8
	default:
		return 0
	}
}

func countNULSegments(value []byte) int {
	n := 0
	for _, b := range value {
		if b == 0 {
			n++
		}
	}
	return n
}

func splitNULSegments(value []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range value {
		if b == 0 {
			out = append(out, value[start:i])
			start = i + 1
		}
	}
	return out
}
