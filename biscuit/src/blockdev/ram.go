package blockdev

// RAMSource is an in-memory Source backing the two kernel images. It
// stands in for the real RAM-disk driver in tests and in the cmd/ demo
// tools, the same role gmofishsauce-wut4's SDCard plays for its emulator.
type RAMSource struct {
	images map[Kind][]byte
}

// NewRAMSource builds a RAMSource serving normal and recovery images.
func NewRAMSource(normal, recovery []byte) *RAMSource {
	return &RAMSource{images: map[Kind][]byte{
		Normal:   normal,
		Recovery: recovery,
	}}
}

// ReadBlock implements Source by slicing BSIZE bytes (zero-padded on a
// short final block) out of the in-memory image.
func (r *RAMSource) ReadBlock(kind Kind, buf *Buf) error {
	img := r.images[kind]
	off := buf.Blockno * BSIZE
	for i := range buf.Data {
		buf.Data[i] = 0
	}
	if off >= uint64(len(img)) {
		return &ErrShortImage{Kind: kind, Blockno: buf.Blockno}
	}
	n := copy(buf.Data[:], img[off:])
	_ = n
	buf.Valid = true
	return nil
}
