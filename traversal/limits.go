package traversal

// Limits bounds how deep and how wide a single Decode call will walk,
// mirroring the teacher's DecodeLimits/DefaultLimits (glint.go) — a named
// value callers can tighten when decoding untrusted input, rather than a
// single hardcoded ceiling.
type Limits struct {
	MaxDepth    int
	MaxElements int
}

// DefaultLimits matches schema.MaxDepth/schema.MaxTLVElements.
var DefaultLimits = Limits{MaxDepth: 32, MaxElements: 1024}
