package tlv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climech/tlvcodec/tlv"
)

type recordingVisitor struct {
	fieldTags   []tlv.Tag
	fieldValues [][]byte
	starts      []tlv.Tag
	ends        []tlv.Tag
}

func (r *recordingVisitor) VisitField(idx, level int, tag tlv.Tag, value []byte) error {
	r.fieldTags = append(r.fieldTags, tag)
	r.fieldValues = append(r.fieldValues, value)
	return nil
}

func (r *recordingVisitor) VisitNestedStart(idx, level int, tag tlv.Tag, length uint32) error {
	r.starts = append(r.starts, tag)
	return nil
}

func (r *recordingVisitor) VisitNestedEnd(idx, level int, tag tlv.Tag) error {
	r.ends = append(r.ends, tag)
	return nil
}

func TestEncodeDecodeFlatFields(t *testing.T) {
	enc := tlv.NewEncoder(make([]byte, 64))
	require.NoError(t, enc.WriteElement(tlv.Field, []byte{1, 2, 3, 4}))
	require.NoError(t, enc.WriteElement(tlv.Field, []byte("hi\x00")))

	v := &recordingVisitor{}
	require.NoError(t, tlv.Decode(enc.Bytes(), v))
	require.Len(t, v.fieldTags, 2)
	assert.Equal(t, []byte{1, 2, 3, 4}, v.fieldValues[0])
	assert.Equal(t, []byte("hi\x00"), v.fieldValues[1])
}

func TestEncodeDecodeNested(t *testing.T) {
	enc := tlv.NewEncoder(make([]byte, 64))
	marker, err := enc.BeginNested(tlv.Nested)
	require.NoError(t, err)
	require.NoError(t, enc.WriteElement(tlv.Field, []byte{9}))
	enc.EndNested(marker)

	v := &recordingVisitor{}
	require.NoError(t, tlv.Decode(enc.Bytes(), v))
	require.Len(t, v.starts, 1)
	assert.Equal(t, tlv.Nested, v.starts[0])
	require.Len(t, v.ends, 1)
	assert.Equal(t, tlv.Nested, v.ends[0])
	require.Len(t, v.fieldTags, 1)
	assert.Equal(t, []byte{9}, v.fieldValues[0])
}

func TestDecodeSkipsReservedTags(t *testing.T) {
	// Reserved tags never come from Encoder, so build the element by hand:
	// tag=CompressedValue(5), length=3, value="xyz".
	raw := []byte{0x00, 0x05, 0x00, 0x00, 0x00, 0x03, 'x', 'y', 'z'}

	v := &recordingVisitor{}
	require.NoError(t, tlv.Decode(raw, v))
	assert.Empty(t, v.fieldTags, "reserved tag must be skipped, not delivered to the visitor")
}

func TestDecodeUnknownTagSkipped(t *testing.T) {
	// Tag 0x20 is not in the alphabet at all; forward-compatible decode
	// skips it the same way it skips a reserved tag.
	raw := []byte{0x00, 0x20, 0x00, 0x00, 0x00, 0x02, 'a', 'b'}
	v := &recordingVisitor{}
	require.NoError(t, tlv.Decode(raw, v))
	assert.Empty(t, v.fieldTags)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x00, 0x00}
	v := &recordingVisitor{}
	err := tlv.Decode(raw, v)
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrInvalidType)
}

func TestDecodeTruncatedValue(t *testing.T) {
	raw := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x10, 'a', 'b'}
	v := &recordingVisitor{}
	err := tlv.Decode(raw, v)
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrInvalidType)
}

func TestEncodeBufferTooSmall(t *testing.T) {
	enc := tlv.NewEncoder(make([]byte, 4))
	err := enc.WriteElement(tlv.Field, []byte{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrBufferTooSmall)
}

func TestBeginNestedBufferTooSmall(t *testing.T) {
	enc := tlv.NewEncoder(make([]byte, 3))
	_, err := enc.BeginNested(tlv.Nested)
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrBufferTooSmall)
}

func TestDecodeMaxDepthExceeded(t *testing.T) {
	// One Nested element wrapping a single Field: level 0 (document) ->
	// level 1 (inside the Nested). A maxDepth of 0 must reject it; a
	// maxDepth of 1 must accept it.
	enc := tlv.NewEncoder(make([]byte, 64))
	marker, err := enc.BeginNested(tlv.Nested)
	require.NoError(t, err)
	require.NoError(t, enc.WriteElement(tlv.Field, []byte{1}))
	enc.EndNested(marker)

	v := &recordingVisitor{}
	err = tlv.DecodeWithLimits(enc.Bytes(), v, 0, tlv.MaxElements)
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrInvalidType)

	v = &recordingVisitor{}
	require.NoError(t, tlv.DecodeWithLimits(enc.Bytes(), v, 1, tlv.MaxElements))
	require.Len(t, v.fieldTags, 1)
}

func TestDecodeMaxElementsExceeded(t *testing.T) {
	enc := tlv.NewEncoder(make([]byte, 4096))
	for i := 0; i < 10; i++ {
		require.NoError(t, enc.WriteElement(tlv.Field, []byte{byte(i)}))
	}

	v := &recordingVisitor{}
	err := tlv.DecodeWithLimits(enc.Bytes(), v, tlv.MaxDepth, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, tlv.ErrInvalidType)
}
