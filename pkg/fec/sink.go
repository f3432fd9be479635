package fec

// Sink receives packed output bytes as they are produced. nbits is always
// 8 except for the final call of a byte-mode run (which may be short) and
// every call in symbol mode (where nbits == num_polys). A non-nil error
// aborts the in-progress operation and is returned verbatim to the caller.
type Sink func(b byte, nbits int) error

// ByteSliceSink returns a Sink that appends every emitted byte to *out,
// the common case of "just give me the encoded/decoded bytes back".
func ByteSliceSink(out *[]byte) Sink {
	return func(b byte, nbits int) error {
		*out = append(*out, b)
		return nil
	}
}
