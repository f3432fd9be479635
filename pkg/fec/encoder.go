package fec

// encodeStep drives the state machine one input bit forward and returns
// the num_polys-bit output symbol for that bit (spec.md §4.1/§4.2).
func (c *Coder) encodeStep(bit uint8) uint32 {
	out := c.tables.out[bit][c.encState]
	c.encState = c.tables.next[bit][c.encState]
	return out
}

// EncodeStream consumes nbits input bits from data (low-bit-first within
// each byte), advances the encoder state, and emits one symbol per input
// bit through the encoder sink.
func (c *Coder) EncodeStream(data []byte, nbits int) error {
	for i := 0; i < nbits; i++ {
		bit := getBit(data, i)
		sym := c.encodeStep(bit)
		if err := c.encWriter.writeSymbol(sym, c.numPolys); err != nil {
			return err
		}
	}
	return nil
}

// EncodeFinish flushes the tail (if do_tail) and any partial output byte,
// returning the total number of output bits emitted since the last
// ReinitEncoder.
func (c *Coder) EncodeFinish() (int, error) {
	if c.doTail {
		for i := 0; i < c.k-1; i++ {
			sym := c.encodeStep(0)
			if err := c.encWriter.writeSymbol(sym, c.numPolys); err != nil {
				return 0, err
			}
		}
	}
	if err := c.encWriter.flush(); err != nil {
		return 0, err
	}
	return c.encWriter.totalBits, nil
}

// EncodeBlock is the non-streaming variant: it writes the encoded symbols
// directly into a caller-provided buffer with a running bit cursor,
// regardless of symbol-mode setting (there is no sink to batch calls
// through). out must be large enough for
// (nbits + (do_tail ? k-1 : 0)) * num_polys bits.
func (c *Coder) EncodeBlock(in []byte, nbits int, out []byte) (int, error) {
	cursor := 0
	emit := func(sym uint32) {
		for j := 0; j < c.numPolys; j++ {
			setBit(out, cursor, uint8((sym>>uint(j))&1))
			cursor++
		}
	}

	for i := 0; i < nbits; i++ {
		emit(c.encodeStep(getBit(in, i)))
	}
	if c.doTail {
		for i := 0; i < c.k-1; i++ {
			emit(c.encodeStep(0))
		}
	}
	return cursor, nil
}
