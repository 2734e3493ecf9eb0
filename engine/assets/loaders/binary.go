package loaders

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// DecodeSPIRV turns a little-endian SPIR-V binary into the words handed to
// shader module creation.
func DecodeSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, core.NewConfigurationError("SPIR-V size %d is not a positive multiple of 4", len(b))
	}
	code := bytesToBytecode(b)
	if code[0] != SPIRVMagic {
		return nil, errors.Mark(
			errors.Newf("bad SPIR-V magic 0x%08x, want 0x%08x", code[0], SPIRVMagic),
			core.ErrConfiguration)
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}
