// Package keyutil renders argument tuples into deterministic cache keys.
package keyutil

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Component renders a single argument together with its dynamic type, so two
// arguments of different types that print identically still produce distinct
// keys (int64(1) vs "1" vs uint(1)).
func Component(arg any) string {
	if arg == nil {
		return "nil"
	}
	return fmt.Sprintf("%T\x1f%v", arg, arg)
}

// Composite hashes an ordered argument tuple into a compact key. Each
// component is length-framed before hashing so no concatenation of adjacent
// components can collide with a different split of the same bytes.
func Composite(args []any) string {
	h := xxhash.New()
	var n [8]byte
	for _, a := range args {
		c := Component(a)
		binary.BigEndian.PutUint64(n[:], uint64(len(c)))
		h.Write(n[:])
		h.WriteString(c)
	}
	return "t" + strconv.FormatUint(uint64(len(args)), 10) + ":" + strconv.FormatUint(h.Sum64(), 16)
}
