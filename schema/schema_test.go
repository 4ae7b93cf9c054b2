package schema_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climech/tlvcodec/schema"
)

type flatRecord struct {
	A int32
	B int32
}

func TestValidateAcceptsFlatDescriptor(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Int32, Offset: unsafe.Offsetof(flatRecord{}.A), Size: 4},
			{Name: "B", Kind: schema.Int32, Offset: unsafe.Offsetof(flatRecord{}.B), Size: 4},
		},
	}
	require.NoError(t, schema.Validate(desc))
}

func TestValidateRejectsOffsetOutOfBounds(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Int32, Offset: 100, Size: 4},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds type size")
}

func TestValidateRejectsInvalidKind(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Offset: 0, Size: 4},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestValidateRejectsOptionalWithoutDiscriminator(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Int32, Offset: 0, Size: 4, Opts: schema.Optional},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a DiscriminatorSpec")
}

func TestValidateRejectsDiscriminatorAfterField(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{
				Name: "A", Kind: schema.Int32, Offset: 0, Size: 4, Opts: schema.Optional,
				Discriminator: &schema.DiscriminatorSpec{TagOffset: 4, TagKind: schema.Int32, TagValueInt: 1},
			},
			{Name: "B", Kind: schema.Int32, Offset: 4, Size: 4},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must precede field offset")
}

func TestValidateRejectsArrayWithoutSpec(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Array, Offset: 0, Size: 4},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without an ArraySpec")
}

func TestValidateRejectsBadSizeFieldWidth(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{
				Name: "A", Kind: schema.Array, Offset: 0, Size: 4,
				Array: &schema.ArraySpec{SizeFieldOffset: 0, SizeFieldSize: 3},
			},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in {1,2,4,8}")
}

func TestValidateRejectsStructWithoutNestedDescriptor(t *testing.T) {
	desc := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: unsafe.Sizeof(flatRecord{}),
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Struct, Offset: 0, Size: 4},
		},
	}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a nested TypeDescriptor")
}

func TestValidateRejectsTooManyFields(t *testing.T) {
	fields := make([]schema.FieldDescriptor, schema.MaxFields+1)
	for i := range fields {
		fields[i] = schema.FieldDescriptor{Name: "x", Kind: schema.Int8, Offset: uintptr(i), Size: 1}
	}
	desc := &schema.TypeDescriptor{TypeName: "big", TypeSize: uintptr(len(fields)), Fields: fields}
	err := schema.Validate(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max")
}

func TestValidateRejectsNestingDeeperThanMaxDepth(t *testing.T) {
	leaf := &schema.TypeDescriptor{
		TypeName: "leaf",
		TypeSize: 4,
		Fields:   []schema.FieldDescriptor{{Name: "X", Kind: schema.Int32, Offset: 0, Size: 4}},
	}
	cur := leaf
	for i := 0; i < schema.MaxDepth+1; i++ {
		cur = &schema.TypeDescriptor{
			TypeName: "wrap",
			TypeSize: unsafe.Sizeof(uintptr(0)),
			Fields: []schema.FieldDescriptor{
				{Name: "Inner", Kind: schema.Struct, Offset: 0, Size: cur.TypeSize, Struct: cur},
			},
		}
	}
	err := schema.Validate(cur)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nests deeper than max depth")
}

func TestLazyPublishesOnce(t *testing.T) {
	calls := 0
	lazy := schema.Lazy(func() *schema.TypeDescriptor {
		calls++
		return &schema.TypeDescriptor{TypeName: "flatRecord", TypeSize: 8}
	})

	d1 := lazy()
	d2 := lazy()
	assert.Same(t, d1, d2)
	assert.Equal(t, 1, calls)
}

func TestFingerprintStableAndOrderSensitive(t *testing.T) {
	a := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: 8,
		Fields: []schema.FieldDescriptor{
			{Name: "A", Kind: schema.Int32, Offset: 0, Size: 4},
			{Name: "B", Kind: schema.Int32, Offset: 4, Size: 4},
		},
	}
	b := &schema.TypeDescriptor{
		TypeName: "flatRecord",
		TypeSize: 8,
		Fields: []schema.FieldDescriptor{
			{Name: "B", Kind: schema.Int32, Offset: 4, Size: 4},
			{Name: "A", Kind: schema.Int32, Offset: 0, Size: 4},
		},
	}
	assert.Equal(t, a.Fingerprint(), a.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
