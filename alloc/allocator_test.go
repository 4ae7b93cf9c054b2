package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climech/tlvcodec/alloc"
)

func TestGCAllocateReturnsZeroedBuffer(t *testing.T) {
	a := alloc.GC()
	buf, err := a.Allocate(16)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	for _, b := range buf {
		assert.Zero(t, b)
	}
	a.Deallocate(buf) // must not panic; GC's Deallocate is a no-op
}

func TestPooledReusesBucketBuffer(t *testing.T) {
	p := alloc.NewPooled(8, 32)

	buf, err := p.Allocate(5)
	require.NoError(t, err)
	require.Len(t, buf, 5)
	buf[0] = 0xFF

	p.Deallocate(buf)

	buf2, err := p.Allocate(5)
	require.NoError(t, err)
	require.Len(t, buf2, 5)
	assert.Zero(t, buf2[0], "a reused buffer must come back zeroed")
}

func TestPooledFallsBackForOversizedRequest(t *testing.T) {
	p := alloc.NewPooled(8, 16)
	buf, err := p.Allocate(1000)
	require.NoError(t, err)
	assert.Len(t, buf, 1000)
}

func TestDefaultPooledSmallestClass(t *testing.T) {
	p := alloc.DefaultPooled()
	buf, err := p.Allocate(1)
	require.NoError(t, err)
	assert.Len(t, buf, 1)
}
