// Package alloc defines the allocator contract the binary record
// materializer uses to obtain storage for pointer strings and dynamic
// arrays during decode (spec.md §4.5), plus two concrete
// implementations: a GC-backed default and a sync.Pool-backed one for
// hot paths that decode the same descriptor repeatedly.
//
// Go does not need manual memory management the way the C original did,
// but the spec's decode contract is explicit that callers supply an
// allocator and that allocation failure is a distinct, reportable error
// (AllocatorFailed) rather than a panic — useful for callers who want to
// cap memory use on untrusted input, or who are decoding into memory
// shared across a cgo boundary where a custom allocator is not
// optional. Both implementations here satisfy that contract on top of
// ordinary Go memory.
package alloc

import (
	"errors"
	"sync"
)

// ErrAllocatorFailed is returned by Allocator.Allocate to signal decode
// should fail with the AllocatorFailed error code.
var ErrAllocatorFailed = errors.New("alloc: allocation failed")

// Allocator is the caller-supplied contract required by the binary
// record materializer whenever decode must produce a non-fixed string or
// a dynamic array. Deallocate must accept exactly the byte slices this
// Allocator's own Allocate returned; mixing allocators is undefined.
type Allocator interface {
	// Allocate returns a zeroed buffer of n bytes, or ErrAllocatorFailed
	// (or a wrapped form of it) if no buffer can be produced.
	Allocate(n int) ([]byte, error)
	// Deallocate releases a buffer previously returned by Allocate. It is
	// the caller's responsibility (per spec.md §5) to deallocate
	// through the same Allocator that produced the buffer.
	Deallocate(buf []byte)
}

// gcAllocator is the default Allocator: ordinary Go heap allocation via
// make(), with Deallocate as a no-op since the garbage collector reclaims
// unreachable buffers on its own. This is the allocator Deserialize uses
// when the caller passes nil options or a nil DeserializeOptions.Allocator.
type gcAllocator struct{}

// GC returns the default allocator, backed by plain Go heap allocation.
func GC() Allocator { return gcAllocator{} }

func (gcAllocator) Allocate(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (gcAllocator) Deallocate([]byte) {}

// poolBucket is one size class in a Pooled allocator: every buffer it
// hands out has the same capacity, so Put only ever sees buffers it can
// reuse for the next Allocate of that class.
type poolBucket struct {
	cap int
	sync.Pool
}

// Pooled is an Allocator backed by a fixed ladder of sync.Pool size
// classes, for callers decoding the same descriptor repeatedly under
// load who want to avoid a fresh heap allocation per string/array field
// on every Deserialize call. Buffers are zeroed before being handed out;
// Deallocate returns them to their size class for reuse.
type Pooled struct {
	buckets []*poolBucket
}

// NewPooled returns a Pooled allocator with size classes at each of
// classSizes bytes (rounded up to when a request doesn't fit any
// class exactly). Requests larger than every class fall back to a
// plain make(), same as gcAllocator, and are never pooled.
func NewPooled(classSizes ...int) *Pooled {
	p := &Pooled{}
	for _, sz := range classSizes {
		sz := sz
		p.buckets = append(p.buckets, &poolBucket{
			cap:  sz,
			Pool: sync.Pool{New: func() any { return make([]byte, sz) }},
		})
	}
	return p
}

// DefaultPooled returns a Pooled allocator with size classes tuned for
// typical string/array field payloads (32 B up to 4 KiB, doubling).
func DefaultPooled() *Pooled {
	return NewPooled(32, 64, 128, 256, 512, 1024, 2048, 4096)
}

func (p *Pooled) bucketFor(n int) *poolBucket {
	for _, b := range p.buckets {
		if b.cap >= n {
			return b
		}
	}
	return nil
}

func (p *Pooled) Allocate(n int) ([]byte, error) {
	b := p.bucketFor(n)
	if b == nil {
		return make([]byte, n), nil
	}
	buf := b.Get().([]byte)[:n]
	clear(buf)
	return buf, nil
}

func (p *Pooled) Deallocate(buf []byte) {
	b := p.bucketFor(cap(buf))
	if b == nil || cap(buf) != b.cap {
		return
	}
	b.Put(buf[:b.cap])
}
