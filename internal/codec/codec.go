// Package codec implements the compression codec that byte-packs a
// multi-vector sequence into a printable string short enough to fit inside a
// vector store payload field.
package codec

import (
	"bytes"
	"compress/flate"
	"encoding/ascii85"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MetadataBudgetBytes is the assumed per-record metadata size limit of the
// vector store backend; Compress refuses to return a blob larger than this.
const MetadataBudgetBytes = 2 << 20 // 2 MB

// Error is returned when either compression stage fails or the result
// exceeds MetadataBudgetBytes.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("codec: %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error  { return e.Err }

// Compress flattens a (L, D) float32 sequence to raw bytes, DEFLATEs them at
// level 6, then base-converts the result to a printable ASCII alphabet
// (ascii85). The shape is not embedded in the blob; callers must carry
// (L, D) alongside (e.g. as separate payload fields).
func Compress(vectors [][]float32) (string, error) {
	raw := flattenFloat32(vectors)

	var deflated bytes.Buffer
	w, err := flate.NewWriter(&deflated, flate.DefaultCompression)
	if err != nil {
		return "", &Error{Stage: "deflate_init", Err: err}
	}
	if _, err := w.Write(raw); err != nil {
		return "", &Error{Stage: "deflate_write", Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &Error{Stage: "deflate_close", Err: err}
	}

	var encoded bytes.Buffer
	enc := ascii85.NewEncoder(&encoded)
	if _, err := enc.Write(deflated.Bytes()); err != nil {
		return "", &Error{Stage: "encode", Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &Error{Stage: "encode", Err: err}
	}

	if encoded.Len() > MetadataBudgetBytes {
		return "", &Error{Stage: "budget", Err: fmt.Errorf("blob of %d bytes exceeds %d byte budget", encoded.Len(), MetadataBudgetBytes)}
	}
	return encoded.String(), nil
}

// Decompress reverses Compress given the original shape (L, D).
func Decompress(blob string, l, d int) ([][]float32, error) {
	if l <= 0 || d <= 0 {
		return nil, &Error{Stage: "shape", Err: fmt.Errorf("invalid shape (%d, %d)", l, d)}
	}

	deflated := new(bytes.Buffer)
	dec := ascii85.NewDecoder(bytes.NewReader([]byte(blob)))
	if _, err := io.Copy(deflated, dec); err != nil {
		return nil, &Error{Stage: "decode", Err: err}
	}

	r := flate.NewReader(deflated)
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Stage: "inflate", Err: err}
	}

	want := l * d * 4
	if len(raw) != want {
		return nil, &Error{Stage: "shape", Err: fmt.Errorf("decompressed %d bytes, expected %d for shape (%d, %d)", len(raw), want, l, d)}
	}
	return unflattenFloat32(raw, l, d), nil
}

func flattenFloat32(vectors [][]float32) []byte {
	var l, d int
	l = len(vectors)
	if l > 0 {
		d = len(vectors[0])
	}
	buf := make([]byte, l*d*4)
	off := 0
	for _, row := range vectors {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	return buf
}

func unflattenFloat32(raw []byte, l, d int) [][]float32 {
	out := make([][]float32, l)
	off := 0
	for i := range out {
		row := make([]float32, d)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
		}
		out[i] = row
	}
	return out
}
