package raytracing

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/math"
)

func TestBitfieldRoundTrip(t *testing.T) {
	cases := []struct {
		low  uint32
		high uint8
	}{
		{0, 0},
		{1, 0xFF},
		{MaxInstanceID, 0},
		{MaxInstanceID, 0xFF},
		{0x123456, 0x7F},
	}
	for _, c := range cases {
		low, high := unpackBitfield(packBitfield(c.low, c.high))
		assert.Equal(t, c.low, low)
		assert.Equal(t, c.high, high)
	}
	assert.Equal(t, uint32(0xFFFFFFFF), packBitfield(MaxInstanceID, 0xFF))
}

func TestInstanceRecordLayout(t *testing.T) {
	model := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	r := NewInstanceRecord(7, model, 0xDEADBEEF00)
	b := r.Bytes()
	require.Len(t, b, InstanceRecordSize)

	// Translation sits in the last column of each row.
	assert.Equal(t, float32(1), float32At(b, 3*4))
	assert.Equal(t, float32(2), float32At(b, 7*4))
	assert.Equal(t, float32(3), float32At(b, 11*4))
	assert.Equal(t, float32(1), float32At(b, 0))

	assert.Equal(t, uint32(7)|uint32(DefaultInstanceMask)<<24, binary.LittleEndian.Uint32(b[48:]))
	assert.Equal(t, uint32(GeometryInstanceTriangleCullDisable)<<24, binary.LittleEndian.Uint32(b[52:]))
	assert.Equal(t, uint64(0xDEADBEEF00), binary.LittleEndian.Uint64(b[56:]))

	assert.Equal(t, r, DecodeInstanceRecord(b))
}

func TestInstanceRecordExtremes(t *testing.T) {
	r := InstanceRecord{
		InstanceID:                  MaxInstanceID,
		Mask:                        0xFF,
		HitGroupOffset:              MaxInstanceID,
		Flags:                       0xFF,
		AccelerationStructureHandle: ^uint64(0),
	}
	require.NoError(t, r.Validate())
	assert.Equal(t, r, DecodeInstanceRecord(r.Bytes()))

	r.InstanceID = MaxInstanceID + 1
	assert.Error(t, r.Validate())
}

func TestEncodeInstanceRecordsIsContiguous(t *testing.T) {
	records := []InstanceRecord{
		NewInstanceRecord(0, math.NewMat4Identity(), 10),
		NewInstanceRecord(1, math.NewMat4Identity(), 20),
	}
	b := EncodeInstanceRecords(records)
	require.Len(t, b, 2*InstanceRecordSize)
	assert.Equal(t, records[1], DecodeInstanceRecord(b[InstanceRecordSize:]))
}
