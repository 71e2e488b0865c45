// Package codec provides pluggable (de)serialization of cached operation
// results. A cached operation pairs one Codec[V] with its result type; the
// cache layer itself only ever sees bytes.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
