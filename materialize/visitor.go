package materialize

import (
	"unsafe"

	"github.com/climech/tlvcodec/schema"
)

// VisitEvent is delivered once per decoded leaf, and once more — with
// Field nil and Index/Level at their zero value — after the whole
// document has been materialized, the sentinel "end of stream" call
// spec.md §4.4(c) requires so a caller driving a state machine off these
// events knows when to stop without separately tracking a byte count.
type VisitEvent struct {
	Index    int
	Level    int
	Field    *schema.FieldDescriptor
	Parent   *schema.TypeDescriptor
	Value    []byte
	UserData any
}

// VisitFunc is the callback a Visitor materializer drives.
type VisitFunc func(VisitEvent) error

// Visitor materializes a decoded document as a sequence of per-leaf
// callbacks, the lightest-weight of the three decode targets: no record
// to allocate into, no text to build, just a pass-through to caller
// logic. Index counts siblings within the immediately enclosing struct
// or array-element scope, reset to 0 whenever that scope opens; Level
// counts nesting depth, the same way tlv.Decode's own idx/level pair
// does for raw wire events.
type Visitor struct {
	cb       VisitFunc
	userData any

	level     int
	levelIdx  []int
}

// NewVisitor returns a Visitor materializer driving cb, with userData
// threaded through unchanged on every event.
func NewVisitor(userData any, cb VisitFunc) *Visitor {
	return &Visitor{cb: cb, userData: userData}
}

func (v *Visitor) nextIdx() int {
	top := len(v.levelIdx) - 1
	i := v.levelIdx[top]
	v.levelIdx[top]++
	return i
}

func (v *Visitor) StructStart(field *schema.FieldDescriptor, nested *schema.TypeDescriptor, data unsafe.Pointer) error {
	elem := field != nil && field.Kind == schema.Array
	switch {
	case field == nil:
		// The document root opens the level-0 scope: top-level leaves must
		// report Level 0, the same as tlv.Decode's own root level, so this
		// does not bump v.level the way every other scope below does.
		v.levelIdx = append(v.levelIdx, 0)
	case elem:
		// One element of a struct array: reuse the element-local scope
		// ArrayStart already pushed, reset for this element's own fields.
		v.levelIdx[len(v.levelIdx)-1] = 0
	default:
		v.nextIdx()
		v.level++
		v.levelIdx = append(v.levelIdx, 0)
	}
	return nil
}

func (v *Visitor) StructEnd(field *schema.FieldDescriptor, nested *schema.TypeDescriptor) error {
	if field != nil && field.Kind == schema.Array {
		return nil // array-element scope stays open for the next element
	}
	if field != nil {
		v.level--
	}
	v.levelIdx = v.levelIdx[:len(v.levelIdx)-1]
	return nil
}

func (v *Visitor) ArrayStart(field *schema.FieldDescriptor, parentData unsafe.Pointer, count int) (unsafe.Pointer, error) {
	v.nextIdx()
	v.level++
	v.levelIdx = append(v.levelIdx, 0)
	return nil, nil
}

func (v *Visitor) ArrayEnd(field *schema.FieldDescriptor) error {
	v.level--
	v.levelIdx = v.levelIdx[:len(v.levelIdx)-1]
	return nil
}

func (v *Visitor) Leaf(field *schema.FieldDescriptor, parent *schema.TypeDescriptor, data unsafe.Pointer, value []byte) error {
	idx := v.nextIdx()
	return v.cb(VisitEvent{
		Index:    idx,
		Level:    v.level,
		Field:    field,
		Parent:   parent,
		Value:    value,
		UserData: v.userData,
	})
}

func (v *Visitor) End() error {
	return v.cb(VisitEvent{UserData: v.userData})
}
