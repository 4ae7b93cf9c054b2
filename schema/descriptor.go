// Package schema implements the Schema Model: immutable, one-shot type
// descriptors that the rest of the codec walks read-only.
//
// A TypeDescriptor is the Go analogue of the C source's static
// `s_type_info` table produced by the S_SERIALIZE_BEGIN/S_FIELD/
// S_SERIALIZE_END macro family: a flat, ordered list of field metadata
// with byte offsets into the record it describes. This package never
// builds that table for you (the registration macro/codegen layer is an
// external collaborator, out of scope here) — callers construct a
// TypeDescriptor literal once, the same way the macros expand into a
// literal static array, and publish it through Lazy for race-safe
// one-time construction.
package schema

import "fmt"

// FieldKind enumerates the wire-relevant shapes a field can take.
type FieldKind int

const (
	Invalid FieldKind = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	Bool
	Blob
	String
	Array
	Struct
)

func (k FieldKind) String() string {
	switch k {
	case Int8:
		return "Int8"
	case UInt8:
		return "UInt8"
	case Int16:
		return "Int16"
	case UInt16:
		return "UInt16"
	case Int32:
		return "Int32"
	case UInt32:
		return "UInt32"
	case Int64:
		return "Int64"
	case UInt64:
		return "UInt64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Bool:
		return "Bool"
	case Blob:
		return "Blob"
	case String:
		return "String"
	case Array:
		return "Array"
	case Struct:
		return "Struct"
	default:
		return "Invalid"
	}
}

// FieldOpts is a bitset of per-field options, mirroring s_field_opts.
type FieldOpts uint32

const (
	OptNone FieldOpts = 0
	// Optional marks a field as present only when its Discriminator
	// matches the record's current discriminator value.
	Optional FieldOpts = 1 << 0
	// Compressed and Encrypted are reserved: the wire tags exist
	// (COMPRESSED_VALUE/ENCRYPTED_VALUE/...) but nothing in this module
	// ever sets these bits on encode, and decode silently skips any
	// reserved tag it meets on the wire.
	Compressed FieldOpts = 1 << 1
	Encrypted  FieldOpts = 1 << 2
	// ArrayDynamic marks an Array field whose storage is a pointer to
	// count*Size contiguous bytes, rather than an inline fixed region.
	ArrayDynamic FieldOpts = 1 << 3
	// StringFixed marks a String field whose character buffer lives
	// inline (Size == buffer capacity) rather than behind a pointer.
	StringFixed FieldOpts = 1 << 4
)

func (o FieldOpts) Has(f FieldOpts) bool { return o&f != 0 }

// ArrayBuiltinKind tunes wire/JSON handling for arrays of non-Struct
// elements.
type ArrayBuiltinKind int

const (
	ArrayBuiltinBlob ArrayBuiltinKind = iota
	ArrayBuiltinFloat
	ArrayBuiltinString
)

// DiscriminatorSpec gates presence of an Optional field on the value of an
// earlier sibling field in the same record.
type DiscriminatorSpec struct {
	TagOffset      uintptr
	TagKind        FieldKind // Int32 or String
	TagValueInt    int32
	TagValueString string
}

// ArraySpec describes an Array field's element count (stored in a sibling
// field) and, for non-Struct elements, how the element kind should be
// interpreted on the wire and in JSON.
type ArraySpec struct {
	SizeFieldOffset uintptr
	SizeFieldSize   uint8 // 1, 2, 4 or 8
	BuiltinKind     ArrayBuiltinKind
}

// FieldDescriptor is one field's metadata within a TypeDescriptor.
type FieldDescriptor struct {
	Name  string // source identifier, used as the JSON key when Label == ""
	Label string // external name; falls back to Name when empty

	Kind FieldKind

	Offset uintptr // byte offset within the parent record
	Size   uintptr // byte size of one element of this field

	Opts FieldOpts

	// Struct is set for Kind == Struct and for Kind == Array whose
	// elements are structs.
	Struct *TypeDescriptor

	// Discriminator is set iff Opts.Has(Optional).
	Discriminator *DiscriminatorSpec

	// Array is set iff Kind == Array.
	Array *ArraySpec
}

// JSONKey returns Label if set, else Name.
func (f *FieldDescriptor) JSONKey() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// TypeDescriptor is the immutable, registered description of a record
// type. Build one TypeDescriptor literal per record type and publish it
// through Lazy; never mutate a TypeDescriptor after it has been handed to
// any codec call.
type TypeDescriptor struct {
	TypeName string
	TypeSize uintptr
	Fields   []FieldDescriptor
}

// Limits mirror the bounds in spec.md §3.2. They exist so the invariants
// below have names instead of magic numbers scattered through the
// traversal engine.
const (
	MaxFields      = 128
	MaxDepth       = 32
	MaxTLVElements = 1024
)

// Validate checks the structural invariants spec.md requires of a
// descriptor before it is used by any codec call: offsets in range,
// discriminators preceding their optional field, array size-field widths,
// field-count and nesting-depth ceilings.
func Validate(t *TypeDescriptor) error {
	return validateAt(t, 1)
}

func validateAt(t *TypeDescriptor, depth int) error {
	if t == nil {
		return fmt.Errorf("schema: nil type descriptor")
	}
	if depth > MaxDepth {
		return fmt.Errorf("schema: %s nests deeper than max depth %d", t.TypeName, MaxDepth)
	}
	if len(t.Fields) > MaxFields {
		return fmt.Errorf("schema: %s has %d fields, exceeds max %d", t.TypeName, len(t.Fields), MaxFields)
	}

	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Kind == Invalid {
			return fmt.Errorf("schema: %s.%s has invalid kind", t.TypeName, f.Name)
		}
		if f.Offset+f.Size > t.TypeSize && f.Kind != Array {
			// Array fields may be ArrayDynamic (pointer-sized slot) with
			// Size describing one element, not the slot itself; only
			// non-array fields are checked for strict containment here.
			if !(f.Opts.Has(ArrayDynamic)) {
				return fmt.Errorf("schema: %s.%s offset+size %d exceeds type size %d",
					t.TypeName, f.Name, f.Offset+f.Size, t.TypeSize)
			}
		}

		if f.Opts.Has(Optional) {
			if f.Discriminator == nil {
				return fmt.Errorf("schema: %s.%s is Optional without a DiscriminatorSpec", t.TypeName, f.Name)
			}
			if f.Discriminator.TagOffset >= f.Offset {
				return fmt.Errorf("schema: %s.%s discriminator offset %d must precede field offset %d",
					t.TypeName, f.Name, f.Discriminator.TagOffset, f.Offset)
			}
		}

		if f.Kind == Struct {
			if f.Struct == nil {
				return fmt.Errorf("schema: %s.%s is Struct without a nested TypeDescriptor", t.TypeName, f.Name)
			}
			if err := validateAt(f.Struct, depth+1); err != nil {
				return err
			}
		}

		if f.Kind == Array {
			if f.Array == nil {
				return fmt.Errorf("schema: %s.%s is Array without an ArraySpec", t.TypeName, f.Name)
			}
			switch f.Array.SizeFieldSize {
			case 1, 2, 4, 8:
			default:
				return fmt.Errorf("schema: %s.%s array size-field size %d not in {1,2,4,8}",
					t.TypeName, f.Name, f.Array.SizeFieldSize)
			}
			if f.Struct != nil {
				if err := validateAt(f.Struct, depth+1); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
