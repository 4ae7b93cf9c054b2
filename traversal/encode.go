package traversal

import (
	"unsafe"

	"github.com/climech/tlvcodec/schema"
	"github.com/climech/tlvcodec/tlv"
)

// Encode walks desc in declared field order against a record based at
// base, writing one TLV element per present field directly into enc.
// Optional fields whose discriminator does not match the record's
// current value are skipped entirely — no element, not even a
// zero-length one, is written for them (spec.md §4.1).
//
// The top-level call and every Struct/Struct-array element recursion
// share this same function: a Struct field wraps a recursive Encode call
// in BeginNested/EndNested, a Struct-array field wraps count consecutive
// recursive Encode calls (one per element, with no per-element framing)
// in a single BeginNested(NESTED_LIST), exactly mirroring how the
// original serializer.c lets S_FIELD_TYPE_STRUCT write directly into the
// destination buffer rather than building an intermediate value.
func Encode(desc *schema.TypeDescriptor, base unsafe.Pointer, enc *tlv.Encoder) error {
	for i := range desc.Fields {
		f := &desc.Fields[i]
		if f.Opts.Has(schema.Optional) && !present(desc, base, f) {
			continue
		}
		if err := encodeField(f, base, enc); err != nil {
			return err
		}
	}
	return nil
}

func encodeField(f *schema.FieldDescriptor, base unsafe.Pointer, enc *tlv.Encoder) error {
	p := fieldPtr(base, f)

	switch f.Kind {
	case schema.Struct:
		marker, err := enc.BeginNested(tlv.Nested)
		if err != nil {
			return err
		}
		if err := Encode(f.Struct, p, enc); err != nil {
			return err
		}
		enc.EndNested(marker)
		return nil

	case schema.Array:
		return encodeArray(f, base, enc)

	case schema.String:
		return encodeString(f, p, enc)

	case schema.Blob:
		return enc.WriteElement(tlv.Field, unsafe.Slice((*byte)(p), f.Size))

	default: // numeric primitives and Bool: raw memcpy, no conversion
		size := scalarSize(f.Kind)
		return enc.WriteElement(tlv.Field, unsafe.Slice((*byte)(p), size))
	}
}

func encodeString(f *schema.FieldDescriptor, p unsafe.Pointer, enc *tlv.Encoder) error {
	if f.Opts.Has(schema.StringFixed) {
		buf := unsafe.Slice((*byte)(p), f.Size)
		n := indexNUL(buf)
		if n < len(buf) {
			n++ // include the terminator itself
		}
		return enc.WriteElement(tlv.Field, buf[:n])
	}

	ptr := *(*unsafe.Pointer)(p)
	if ptr == nil {
		return enc.WriteElement(tlv.Field, nil)
	}
	n := cStrLen(ptr)
	value := make([]byte, n+1)
	copy(value, unsafe.Slice((*byte)(ptr), n))
	return enc.WriteElement(tlv.Field, value)
}

func encodeArray(f *schema.FieldDescriptor, base unsafe.Pointer, enc *tlv.Encoder) error {
	count := int(readUint(unsafe.Add(base, f.Array.SizeFieldOffset), f.Array.SizeFieldSize))
	elems := arrayElemsBase(f, base)

	if f.Struct != nil {
		marker, err := enc.BeginNested(tlv.NestedList)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := Encode(f.Struct, elemPtr(elems, i, f.Size), enc); err != nil {
				return err
			}
		}
		enc.EndNested(marker)
		return nil
	}

	var value []byte
	switch f.Array.BuiltinKind {
	case schema.ArrayBuiltinString:
		for i := 0; i < count; i++ {
			ptr := *(*unsafe.Pointer)(elemPtr(elems, i, f.Size))
			if ptr == nil {
				value = append(value, 0)
				continue
			}
			n := cStrLen(ptr)
			value = append(value, unsafe.Slice((*byte)(ptr), n)...)
			value = append(value, 0)
		}
	default: // ArrayBuiltinBlob, ArrayBuiltinFloat: raw memcpy
		if count > 0 {
			value = unsafe.Slice((*byte)(elems), uintptr(count)*f.Size)
		}
	}
	return enc.WriteElement(tlv.List, value)
}

func arrayElemsBase(f *schema.FieldDescriptor, base unsafe.Pointer) unsafe.Pointer {
	p := fieldPtr(base, f)
	if f.Opts.Has(schema.ArrayDynamic) {
		return *(*unsafe.Pointer)(p)
	}
	return p
}

// present evaluates f's DiscriminatorSpec against the sibling field
// already present in the record, exactly the equality check
// is_field_present performs in the original serializer.c: Int32 fields
// compare by value, String fields by content.
func present(desc *schema.TypeDescriptor, base unsafe.Pointer, f *schema.FieldDescriptor) bool {
	d := f.Discriminator
	switch d.TagKind {
	case schema.Int32:
		got := *(*int32)(unsafe.Add(base, d.TagOffset))
		return got == d.TagValueInt
	case schema.String:
		sib := findFieldAtOffset(desc, d.TagOffset)
		if sib == nil {
			return false
		}
		return readStringValue(sib, base) == d.TagValueString
	default:
		return false
	}
}

func findFieldAtOffset(desc *schema.TypeDescriptor, offset uintptr) *schema.FieldDescriptor {
	for i := range desc.Fields {
		if desc.Fields[i].Offset == offset {
			return &desc.Fields[i]
		}
	}
	return nil
}

func readStringValue(f *schema.FieldDescriptor, base unsafe.Pointer) string {
	p := fieldPtr(base, f)
	if f.Opts.Has(schema.StringFixed) {
		buf := unsafe.Slice((*byte)(p), f.Size)
		return string(buf[:indexNUL(buf)])
	}
	ptr := *(*unsafe.Pointer)(p)
	if ptr == nil {
		return ""
	}
	return string(unsafe.Slice((*byte)(ptr), cStrLen(ptr)))
}

func indexNUL(buf []byte) int {
	for i, b := range buf {
		if b == 0 {
			return i
		}
	}
	return len(buf)
}
