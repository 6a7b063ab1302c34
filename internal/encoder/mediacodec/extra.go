package mediacodec

import "encoding/binary"

// encodeBufferInfo packs a BufferInfo into the 24-byte side-data blob
// attached to emitted packets: offset, size, pts in microseconds, flags,
// all little-endian.
func encodeBufferInfo(info BufferInfo) []byte {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint32(b[0:], uint32(info.Offset))
	binary.LittleEndian.PutUint32(b[4:], uint32(info.Size))
	binary.LittleEndian.PutUint64(b[8:], uint64(info.PTSMicros))
	binary.LittleEndian.PutUint32(b[16:], uint32(info.Flags))
	return b
}

// DecodeBufferInfo is the inverse of the packet side-data encoding. False
// when the blob has the wrong length.
func DecodeBufferInfo(b []byte) (BufferInfo, bool) {
	if len(b) != 24 {
		return BufferInfo{}, false
	}
	return BufferInfo{
		Offset:    int(binary.LittleEndian.Uint32(b[0:])),
		Size:      int(binary.LittleEndian.Uint32(b[4:])),
		PTSMicros: int64(binary.LittleEndian.Uint64(b[8:])),
		Flags:     Flags(binary.LittleEndian.Uint32(b[16:])),
	}, true
}
