package materialize

import (
	"encoding/json"
	"math"
	"strconv"
	"unsafe"

	"github.com/climech/tlvcodec/schema"
)

// JSON materializes a decoded document as JSON text, maintaining the
// open-brace/open-bracket structural stack spec.md §4.4(b) describes —
// the same structural-stack approach the teacher's printer.go uses to
// walk a schema, adapted here to walk decoded values instead. Unlike the
// teacher's JSON-ish schema dump, string values are escaped properly
// (spec.md flags the teacher's renderer as not escaping at all; this is
// the one point this module deliberately does not imitate the teacher).
type JSON struct {
	buf   []byte
	stack []bool // per open {/[ level: has an item already been written
}

// NewJSON returns an empty JSON materializer.
func NewJSON() *JSON { return &JSON{} }

// Bytes returns the JSON text written so far. Valid only after End has
// been called (i.e. after a full, successful Decode).
func (j *JSON) Bytes() []byte { return j.buf }

func (j *JSON) beforeItem() {
	if len(j.stack) == 0 {
		return
	}
	top := len(j.stack) - 1
	if j.stack[top] {
		j.buf = append(j.buf, ',')
	}
	j.stack[top] = true
}

func (j *JSON) writeKey(key string) {
	j.buf = append(j.buf, escapeJSONString(key)...)
	j.buf = append(j.buf, ':')
}

func (j *JSON) StructStart(field *schema.FieldDescriptor, nested *schema.TypeDescriptor, data unsafe.Pointer) error {
	j.beforeItem()
	// A struct-array element replays the array field itself as field (the
	// decode engine has no separate per-element descriptor), so it must
	// render as a bare object in sequence, not as a new "key": object.
	if field != nil && field.Kind != schema.Array {
		j.writeKey(field.JSONKey())
	}
	j.buf = append(j.buf, '{')
	j.stack = append(j.stack, false)
	return nil
}

func (j *JSON) StructEnd(field *schema.FieldDescriptor, nested *schema.TypeDescriptor) error {
	j.buf = append(j.buf, '}')
	j.stack = j.stack[:len(j.stack)-1]
	return nil
}

func (j *JSON) ArrayStart(field *schema.FieldDescriptor, parentData unsafe.Pointer, count int) (unsafe.Pointer, error) {
	j.beforeItem()
	j.writeKey(field.JSONKey())
	j.buf = append(j.buf, '[')
	j.stack = append(j.stack, false)
	return nil, nil
}

func (j *JSON) ArrayEnd(field *schema.FieldDescriptor) error {
	j.buf = append(j.buf, ']')
	j.stack = j.stack[:len(j.stack)-1]
	return nil
}

func (j *JSON) Leaf(field *schema.FieldDescriptor, parent *schema.TypeDescriptor, data unsafe.Pointer, value []byte) error {
	j.beforeItem()
	j.writeKey(field.JSONKey())
	j.buf = append(j.buf, j.renderValue(field, value)...)
	return nil
}

func (j *JSON) End() error { return nil }

func (j *JSON) renderValue(field *schema.FieldDescriptor, value []byte) []byte {
	switch field.Kind {
	case schema.Bool:
		if len(value) > 0 && value[0] != 0 {
			return []byte("true")
		}
		return []byte("false")
	case schema.Int8, schema.UInt8, schema.Int16, schema.UInt16,
		schema.Int32, schema.UInt32, schema.Int64, schema.UInt64:
		return []byte(strconv.FormatInt(widenInt(field.Kind, value), 10))
	case schema.Float32:
		return []byte(formatFloat(float64(readFloat32(value))))
	case schema.Float64:
		return []byte(formatFloat(readFloat64(value)))
	case schema.Blob:
		return renderByteDecimals(value)
	case schema.String:
		return []byte(escapeJSONString(decodedStringValue(value)))
	case schema.Array:
		return j.renderArray(field, value)
	default:
		return []byte("null")
	}
}

func (j *JSON) renderArray(field *schema.FieldDescriptor, value []byte) []byte {
	switch field.Array.BuiltinKind {
	case schema.ArrayBuiltinString:
		segs := splitNULSegments(value)
		out := []byte{'['}
		for i, seg := range segs {
			if i > 0 {
				out = append(out, ',')
			}
			out = append(out, escapeJSONString(string(seg))...)
		}
		return append(out, ']')
	case schema.ArrayBuiltinFloat:
		out := []byte{'['}
		n := 0
		if field.Size > 0 {
			n = len(value) / int(field.Size)
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				out = append(out, ',')
			}
			chunk := value[i*int(field.Size) : (i+1)*int(field.Size)]
			if field.Size == 4 {
				out = append(out, formatFloat(float64(readFloat32(chunk)))...)
			} else {
				out = append(out, formatFloat(readFloat64(chunk))...)
			}
		}
		return append(out, ']')
	default: // ArrayBuiltinBlob: render the whole payload as unsigned byte decimals
		return renderByteDecimals(value)
	}
}

func renderByteDecimals(value []byte) []byte {
	out := []byte{'['}
	for i, b := range value {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(b), 10)
	}
	return append(out, ']')
}

func widenInt(k schema.FieldKind, value []byte) int64 {
	switch k {
	case schema.Int8:
		return int64(int8(value[0]))
	case schema.UInt8:
		return int64(value[0])
	case schema.Int16:
		return int64(*(*int16)(unsafe.Pointer(&value[0])))
	case schema.UInt16:
		return int64(*(*uint16)(unsafe.Pointer(&value[0])))
	case schema.Int32:
		return int64(*(*int32)(unsafe.Pointer(&value[0])))
	case schema.UInt32:
		return int64(*(*uint32)(unsafe.Pointer(&value[0])))
	case schema.Int64:
		return *(*int64)(unsafe.Pointer(&value[0]))
	case schema.UInt64:
		return int64(*(*uint64)(unsafe.Pointer(&value[0])))
	default:
		return 0
	}
}

func readFloat32(value []byte) float32 {
	bits := *(*uint32)(unsafe.Pointer(&value[0]))
	return math.Float32frombits(bits)
}

func readFloat64(value []byte) float64 {
	bits := *(*uint64)(unsafe.Pointer(&value[0]))
	return math.Float64frombits(bits)
}

// formatFloat renders f the way the original source's printf("%f", ...)
// does: a fixed 6 decimal digits, never the shortest round-trip form.
// That fixed precision matters specifically for Float32 fields, whose
// bit-exact value has already been widened to float64 by the caller
// (readFloat32) before reaching here — the widening reintroduces the
// float32->float64 rounding noise (3.14 becomes 3.140000104904175), and
// 'g'/-1 (shortest round-trip) would render that noise verbatim. Fixed
// 6-digit 'f' formatting rounds it away, matching spec.md §8.3's
// documented "value":3.140000 for a Float32 field holding 3.14.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// decodedStringValue strips the trailing NUL a wire string value carries
// (when non-empty), recovering the logical content.
func decodedStringValue(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	if value[len(value)-1] == 0 {
		return string(value[:len(value)-1])
	}
	return string(value)
}

// escapeJSONString quotes and escapes s using encoding/json's string
// encoding rules rather than hand-rolling escape handling — the one
// place this module reaches for encoding/json, purely as a correct
// string-escaper, not as the structural writer (which is hand-rolled
// above, the way the teacher's printer.go hand-rolls its own output
// instead of building a JSON tree and marshaling it).
func escapeJSONString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
