package schema

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Lazy wraps a builder function in a sync.Once, returning a func that
// always yields the same *TypeDescriptor, built exactly once even under
// concurrent first calls.
//
// This replaces the C source's
//
//	static s_type_info info = {0};
//	static bool initialized = false;
//	if (initialized) return &info;
//
// pattern from S_SERIALIZE_BEGIN/S_SERIALIZE_END, which is not itself
// race-safe against concurrent first initialization. sync.Once gives the
// same one-shot-per-type guarantee spec.md §5 asks for ("the sentinel
// guarding first-time initialization must be safe against races") without
// requiring callers to reach for a mutex by hand.
//
// Typical use, one package-level call per record type:
//
//	var fooType = schema.Lazy(buildFooDescriptor)
//
//	func buildFooDescriptor() *schema.TypeDescriptor {
//		return &schema.TypeDescriptor{ ... }
//	}
func Lazy(build func() *TypeDescriptor) func() *TypeDescriptor {
	var once sync.Once
	var desc *TypeDescriptor
	return func() *TypeDescriptor {
		once.Do(func() {
			desc = build()
		})
		return desc
	}
}

// Fingerprint hashes a descriptor's shape (type name, type size, and each
// field's name/label/kind/offset/size/opts, recursing into nested
// descriptors) into a diagnostic 64-bit value.
//
// This is NOT part of the wire format — it never appears in an encoded
// document and has no bearing on the byte counts spec.md §8.3 asserts.
// It exists for callers who want to detect, out of band, that the
// TypeDescriptor used to decode a document differs from the one that
// encoded it (e.g. after a deploy skew), the same role the teacher's
// embedded schema CRC32 (glint's encoder.go, crc32.ChecksumIEEE) plays on
// its self-describing wire format. Because our wire format carries no
// schema at all (the descriptor must be supplied out of band by both
// sides), that check has to live off the wire, hence a plain diagnostic
// method instead of an embedded header byte.
func (t *TypeDescriptor) Fingerprint() uint64 {
	h := xxhash.New()
	fingerprintInto(h, t)
	return h.Sum64()
}

func fingerprintInto(h *xxhash.Digest, t *TypeDescriptor) {
	if t == nil {
		return
	}
	var buf [8]byte

	writeStr(h, t.TypeName)
	binary.LittleEndian.PutUint64(buf[:], uint64(t.TypeSize))
	h.Write(buf[:])

	for i := range t.Fields {
		f := &t.Fields[i]
		writeStr(h, f.Name)
		writeStr(h, f.Label)

		binary.LittleEndian.PutUint64(buf[:], uint64(f.Kind))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(f.Offset))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(f.Size))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(f.Opts))
		h.Write(buf[:])

		if f.Kind == Struct || (f.Kind == Array && f.Struct != nil) {
			fingerprintInto(h, f.Struct)
		}
	}
}

func writeStr(h *xxhash.Digest, s string) {
	var lb [8]byte
	binary.LittleEndian.PutUint64(lb[:], uint64(len(s)))
	h.Write(lb[:])
	h.Write([]byte(s))
}
