// Package wire frames cached entries. The header carries a magic, a format
// version and a flags byte so readers can reject foreign or corrupt bytes
// instead of handing them to a codec. A flagged entry with an empty payload
// represents a cached nil result.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

// entry flags
const (
	// FlagNil marks an entry that caches a nil operation result. The payload
	// is empty and must not be decoded.
	FlagNil byte = 1 << 0
)

var (
	ErrCorrupt = errors.New("cacheops: corrupt entry")
	magic4     = [...]byte{'C', 'O', 'P', 'S'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | flags(1) | vlen(u32 be) | payload(vlen)
func Encode(flags byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(flags)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func Decode(b []byte) (flags byte, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}

	flags = b[5]
	vlen := int(binary.BigEndian.Uint32(b[6:10]))
	if vlen < 0 || vlen > len(b)-hdr { // overflow-safe bound check
		return 0, nil, ErrCorrupt
	}
	if flags&FlagNil != 0 && vlen != 0 {
		return 0, nil, ErrCorrupt
	}

	return flags, b[hdr : hdr+vlen], nil
}
