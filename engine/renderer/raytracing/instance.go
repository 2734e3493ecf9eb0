package raytracing

import (
	"encoding/binary"
	stdmath "math"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/math"
)

const (
	// InstanceRecordSize is the byte size of one top-level instance record.
	InstanceRecordSize = 64
	// MaxInstanceID is the largest value the 24-bit instance id field holds.
	MaxInstanceID = 0xFFFFFF
	// DefaultInstanceMask makes an instance visible to every ray.
	DefaultInstanceMask = 0xFF
)

type GeometryInstanceFlags uint8

const (
	GeometryInstanceTriangleCullDisable       GeometryInstanceFlags = 0x01
	GeometryInstanceTriangleFrontCounterClock GeometryInstanceFlags = 0x02
	GeometryInstanceForceOpaque               GeometryInstanceFlags = 0x04
	GeometryInstanceForceNoOpaque             GeometryInstanceFlags = 0x08
)

// InstanceRecord places one bottom-level structure in the top-level one.
type InstanceRecord struct {
	// Row-major 3x4 object-to-world transform.
	Transform [12]float32
	// 24 bits.
	InstanceID uint32
	Mask       uint8
	// 24 bits, added to the hit group index.
	HitGroupOffset uint32
	Flags          GeometryInstanceFlags
	// Device handle of the referenced bottom-level structure.
	AccelerationStructureHandle uint64
}

// NewInstanceRecord fills a record for an object with the given id, model
// matrix and bottom-level handle.
func NewInstanceRecord(id uint32, model math.Mat4, blas uint64) InstanceRecord {
	return InstanceRecord{
		Transform:                   model.RowMajor3x4(),
		InstanceID:                  id,
		Mask:                        DefaultInstanceMask,
		HitGroupOffset:              0,
		Flags:                       GeometryInstanceTriangleCullDisable,
		AccelerationStructureHandle: blas,
	}
}

func packBitfield(low24 uint32, high8 uint8) uint32 {
	return low24&MaxInstanceID | uint32(high8)<<24
}

func unpackBitfield(word uint32) (uint32, uint8) {
	return word & MaxInstanceID, uint8(word >> 24)
}

// Validate reports fields that do not fit their packed width.
func (r InstanceRecord) Validate() error {
	if r.InstanceID > MaxInstanceID {
		return errors.AssertionFailedf("instance id %d exceeds 24 bits", r.InstanceID)
	}
	if r.HitGroupOffset > MaxInstanceID {
		return errors.AssertionFailedf("hit group offset %d exceeds 24 bits", r.HitGroupOffset)
	}
	return nil
}

// Put encodes the record into the first InstanceRecordSize bytes of dst.
func (r InstanceRecord) Put(dst []byte) {
	_ = dst[InstanceRecordSize-1]
	for i, f := range r.Transform {
		binary.LittleEndian.PutUint32(dst[i*4:], stdmath.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(dst[48:], packBitfield(r.InstanceID, r.Mask))
	binary.LittleEndian.PutUint32(dst[52:], packBitfield(r.HitGroupOffset, uint8(r.Flags)))
	binary.LittleEndian.PutUint64(dst[56:], r.AccelerationStructureHandle)
}

// Bytes returns the encoded record.
func (r InstanceRecord) Bytes() []byte {
	out := make([]byte, InstanceRecordSize)
	r.Put(out)
	return out
}

// DecodeInstanceRecord reads a record written by Put.
func DecodeInstanceRecord(src []byte) InstanceRecord {
	_ = src[InstanceRecordSize-1]
	var r InstanceRecord
	for i := range r.Transform {
		r.Transform[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	r.InstanceID, r.Mask = unpackBitfield(binary.LittleEndian.Uint32(src[48:]))
	var flags uint8
	r.HitGroupOffset, flags = unpackBitfield(binary.LittleEndian.Uint32(src[52:]))
	r.Flags = GeometryInstanceFlags(flags)
	r.AccelerationStructureHandle = binary.LittleEndian.Uint64(src[56:])
	return r
}

// EncodeInstanceRecords lays records out back to back.
func EncodeInstanceRecords(records []InstanceRecord) []byte {
	out := make([]byte, len(records)*InstanceRecordSize)
	for i, r := range records {
		r.Put(out[i*InstanceRecordSize:])
	}
	return out
}
