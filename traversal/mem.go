package traversal

import (
	"unsafe"

	"github.com/climech/tlvcodec/schema"
)

// fieldPtr returns the address of field within a record based at base,
// or nil when base is nil (decode targets with no backing record never
// dereference the pointers the engine computes for them).
func fieldPtr(base unsafe.Pointer, f *schema.FieldDescriptor) unsafe.Pointer {
	if base == nil {
		return nil
	}
	return unsafe.Add(base, f.Offset)
}

// elemPtr returns the address of the i-th element of size elemSize
// within an array whose storage begins at base.
func elemPtr(base unsafe.Pointer, i int, elemSize uintptr) unsafe.Pointer {
	if base == nil {
		return nil
	}
	return unsafe.Add(base, uintptr(i)*elemSize)
}

// readUint reads an unsigned integer of width size (1, 2, 4 or 8 bytes,
// host byte order) from p.
func readUint(p unsafe.Pointer, size uint8) uint64 {
	switch size {
	case 1:
		return uint64(*(*uint8)(p))
	case 2:
		return uint64(*(*uint16)(p))
	case 4:
		return uint64(*(*uint32)(p))
	case 8:
		return *(*uint64)(p)
	default:
		panic("traversal: invalid size-field width")
	}
}

// writeUint writes an unsigned integer of width size (1, 2, 4 or 8
// bytes, host byte order) to p.
func writeUint(p unsafe.Pointer, size uint8, v uint64) {
	switch size {
	case 1:
		*(*uint8)(p) = uint8(v)
	case 2:
		*(*uint16)(p) = uint16(v)
	case 4:
		*(*uint32)(p) = uint32(v)
	case 8:
		*(*uint64)(p) = v
	default:
		panic("traversal: invalid size-field width")
	}
}

// cStrLen scans a NUL-terminated byte buffer starting at p, the way C's
// strlen does, bounded defensively so a malformed (non-terminated)
// pointer-string field cannot run the scan away.
const maxCStrScan = 1 << 20

func cStrLen(p unsafe.Pointer) int {
	for i := 0; i < maxCStrScan; i++ {
		if *(*byte)(unsafe.Add(p, i)) == 0 {
			return i
		}
	}
	panic("traversal: pointer string has no NUL terminator within bounds")
}

// scalarSize returns the byte width of a primitive field kind, used by
// Encode to size the FIELD element it writes for a numeric or Bool field.
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
