package traversal

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/climech/tlvcodec/schema"
)

func TestReadWriteUintRoundTrip(t *testing.T) {
	var buf [8]byte
	p := unsafe.Pointer(&buf[0])

	writeUint(p, 1, 0xAB)
	assert.Equal(t, uint64(0xAB), readUint(p, 1))

	writeUint(p, 2, 0xABCD)
	assert.Equal(t, uint64(0xABCD), readUint(p, 2))

	writeUint(p, 4, 0xDEADBEEF)
	assert.Equal(t, uint64(0xDEADBEEF), readUint(p, 4))

	writeUint(p, 8, 0x0102030405060708)
	assert.Equal(t, uint64(0x0102030405060708), readUint(p, 8))
}

func TestCStrLenFindsTerminator(t *testing.T) {
	buf := []byte("hello\x00trailing-garbage")
	assert.Equal(t, 5, cStrLen(unsafe.Pointer(&buf[0])))
}

func TestCStrLenPanicsWithoutTerminator(t *testing.T) {
	buf := make([]byte, maxCStrScan+1)
	for i := range buf {
		buf[i] = 'x'
	}
	assert.Panics(t, func() { cStrLen(unsafe.Pointer(&buf[0])) })
}

func TestScalarSize(t *testing.T) {
	cases := map[schema.FieldKind]uintptr{
		schema.Int8:    1,
		schema.UInt8:   1,
		schema.Bool:    1,
		schema.Int16:   2,
		schema.UInt16:  2,
		schema.Int32:   4,
		schema.UInt32:  4,
		schema.Float32: 4,
		schema.Int64:   8,
		schema.UInt64:  8,
		schema.Float64: 8,
	}
	for kind, want := range cases {
		assert.Equal(t, want, scalarSize(kind), "kind %v", kind)
	}
}

func TestFieldPtrNilBase(t *testing.T) {
	f := &schema.FieldDescriptor{Offset: 4}
	assert.Nil(t, fieldPtr(nil, f))
}

func TestElemPtrNilBase(t *testing.T) {
	assert.Nil(t, elemPtr(nil, 2, 8))
}
