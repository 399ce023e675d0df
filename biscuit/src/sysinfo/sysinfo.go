// Package sysinfo describes the fixed-address system-information table
// BOOT publishes for the kernel, corresponding to struct sys_info in the
// original bootloader's start.c.
package sysinfo

import (
	"encoding/binary"
	"fmt"

	"mem"
)

// Address is the fixed physical address of the system-information record.
const Address mem.Pa_t = 0x80080000

// HashSize is the width of a SHA-256 digest.
const HashSize = 32

// Record is the system-information table, little-endian and naturally
// aligned in the order the bootloader writes it.
type Record struct {
	BLStart      uint64
	BLEnd        uint64
	DRStart      uint64
	DREnd        uint64
	ExpectedHash [HashSize]byte
	ObservedHash [HashSize]byte
}

// Size is the on-wire byte size of a Record.
const Size = 8*4 + HashSize*2

// Marshal encodes the record in the fixed little-endian layout the kernel
// reads at sysinfo.Address.
func (r *Record) Marshal() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint64(buf[0:8], r.BLStart)
	binary.LittleEndian.PutUint64(buf[8:16], r.BLEnd)
	binary.LittleEndian.PutUint64(buf[16:24], r.DRStart)
	binary.LittleEndian.PutUint64(buf[24:32], r.DREnd)
	copy(buf[32:32+HashSize], r.ExpectedHash[:])
	copy(buf[32+HashSize:32+2*HashSize], r.ObservedHash[:])
	return buf
}

// Unmarshal decodes a Record previously produced by Marshal. It reports an
// error if buf is shorter than Size.
func Unmarshal(buf []byte) (Record, error) {
	var r Record
	if len(buf) < Size {
		return r, fmt.Errorf("sysinfo: short record: got %d bytes, want %d", len(buf), Size)
	}
	r.BLStart = binary.LittleEndian.Uint64(buf[0:8])
	r.BLEnd = binary.LittleEndian.Uint64(buf[8:16])
	r.DRStart = binary.LittleEndian.Uint64(buf[16:24])
	r.DREnd = binary.LittleEndian.Uint64(buf[24:32])
	copy(r.ExpectedHash[:], buf[32:32+HashSize])
	copy(r.ObservedHash[:], buf[32+HashSize:32+2*HashSize])
	return r, nil
}
