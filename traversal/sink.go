// Package traversal implements the Traversal Engine: the component that
// walks a schema.TypeDescriptor in lockstep with either a record in
// memory (encode) or an incoming tlv.Decode event stream (decode),
// translating between the two using the field-order, presence and
// array-count rules spec.md §4 lays out.
//
// Decode never talks to a concrete output format directly. It drives a
// Sink, so the same walk serves all three decode targets (binary record,
// JSON text, custom visitor callback) described in spec.md §4.4 — only
// the Sink implementation, in package materialize, differs.
package traversal

import (
	"unsafe"

	"github.com/climech/tlvcodec/schema"
)

// Sink receives the decode-side traversal's output, in the same
// pre-order a tlv.Visitor sees, but already aligned to descriptor
// fields: every call identifies the FieldDescriptor it concerns instead
// of a bare tag.
//
// data is the address, within the target record, where this field's
// value belongs. It is nil whenever the decode target has no backing
// record (the JSON and custom-visitor materializers never dereference
// it).
type Sink interface {
	// StructStart/StructEnd bracket one Struct-kind field's value, or one
	// element of a Struct array. field is nil only for the document root.
	StructStart(field *schema.FieldDescriptor, nested *schema.TypeDescriptor, data unsafe.Pointer) error
	StructEnd(field *schema.FieldDescriptor, nested *schema.TypeDescriptor) error

	// ArrayStart/ArrayEnd bracket a Struct array field's count elements
	// (each element itself bracketed by StructStart/StructEnd). parentData
	// is the address of the record the array field itself lives in, so a
	// binary target can resolve the inline region (static storage) or
	// allocate and store a pointer (ArrayDynamic storage). ArrayStart
	// returns the base address of the count*field.Size element storage,
	// or nil when the target has no backing record.
	ArrayStart(field *schema.FieldDescriptor, parentData unsafe.Pointer, count int) (unsafe.Pointer, error)
	ArrayEnd(field *schema.FieldDescriptor) error

	// Leaf fires once per scalar field value: every primitive kind, Blob,
	// String, and a builtin-kind Array (whose entire count*Size — or, for
	// ArrayBuiltinString, variable-length NUL-terminated — payload arrives
	// as one call rather than being split into per-element events).
	Leaf(field *schema.FieldDescriptor, parent *schema.TypeDescriptor, data unsafe.Pointer, value []byte) error

	// End fires once, after the whole document has been materialized.
	End() error
}
