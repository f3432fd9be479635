package fec

import "math/bits"

// symbolDistance returns the Hamming distance between sym and out in hard
// mode, or the soft-decision distance described in spec.md §4.3 when u is
// non-nil: for each polynomial j, add u[j] if the bits agree (we were told
// this bit is uncertain yet it matched) or (uncertainty_100 - u[j]) if they
// disagree (we were told this bit is certain yet it mismatched).
func (c *Coder) symbolDistance(sym, out uint32, u []uint8, soft bool) uint64 {
	if !soft {
		return uint64(bits.OnesCount32(sym ^ out))
	}
	var d uint64
	for j := 0; j < c.numPolys; j++ {
		symBit := (sym >> uint(j)) & 1
		outBit := (out >> uint(j)) & 1
		if symBit == outBit {
			d += uint64(u[j])
		} else {
			d += uint64(c.uncertainty100) - uint64(u[j])
		}
	}
	return d
}

// predecessors returns the two states that can transition into s.
func (c *Coder) predecessors(s int) (p0, p1 int) {
	p0 = s >> 1
	topBit := c.k - 2
	if topBit < 0 {
		return p0, p0
	}
	p1 = p0 | (1 << uint(topBit))
	return p0, p1
}

// decodeStepSymbol performs one Viterbi step (spec.md §4.3 "Step") against
// a single received num_polys-bit symbol, with an optional per-bit
// uncertainty array for soft decision.
func (c *Coder) decodeStepSymbol(symbol uint32, u []uint8, soft bool) error {
	if c.ctrellis+c.numPolys > c.trellisSize {
		return ErrCapacityExceeded
	}

	col := c.trellis[c.ctrellis]
	for s := 0; s < c.numStates; s++ {
		p0, p1 := c.predecessors(s)
		b0 := c.transitionBit(p0, s)
		b1 := c.transitionBit(p1, s)

		d0 := c.currPath[p0] + c.symbolDistance(symbol, c.tables.out[b0][p0], u, soft)
		d1 := c.currPath[p1] + c.symbolDistance(symbol, c.tables.out[b1][p1], u, soft)

		// Strict '<' tie-break: on equality keep p0 (spec.md §4.3).
		if d0 <= d1 {
			col[s] = p0
			c.nextPath[s] = d0
		} else {
			col[s] = p1
			c.nextPath[s] = d1
		}
	}

	c.currPath, c.nextPath = c.nextPath, c.currPath
	c.ctrellis++
	return nil
}

// DecodeStream buffers fewer-than-num_polys leftover bits between calls
// and steps the trellis once per complete received symbol (spec.md §4.3
// "Streaming"). u, if non-nil, must have one entry per bit of data (not
// per symbol) and switches decoding to soft-decision mode.
func (c *Coder) DecodeStream(data []byte, nbits int, u []uint8) error {
	soft := u != nil
	idx := 0

	if c.leftoverCount > 0 {
		needed := c.numPolys - c.leftoverCount
		if nbits >= needed {
			sym := c.leftoverBits
			symU := make([]uint8, c.numPolys)
			copy(symU[:c.leftoverCount], c.leftoverUnc[:c.leftoverCount])
			for i := 0; i < needed; i++ {
				bit := getBit(data, idx+i)
				sym |= uint32(bit) << uint(c.leftoverCount+i)
				if soft {
					symU[c.leftoverCount+i] = u[idx+i]
				}
			}
			idx += needed
			nbits -= needed
			if err := c.decodeStepSymbol(sym, symU, soft); err != nil {
				return err
			}
			c.leftoverCount = 0
			c.leftoverBits = 0
		} else {
			for i := 0; i < nbits; i++ {
				bit := getBit(data, idx+i)
				c.leftoverBits |= uint32(bit) << uint(c.leftoverCount)
				if soft {
					c.leftoverUnc[c.leftoverCount] = u[idx+i]
				}
				c.leftoverCount++
			}
			return nil
		}
	}

	for nbits >= c.numPolys {
		sym := extractBits(data, idx, c.numPolys)
		var symU []uint8
		if soft {
			symU = make([]uint8, c.numPolys)
			for j := 0; j < c.numPolys; j++ {
				symU[j] = u[idx+j]
			}
		}
		if err := c.decodeStepSymbol(sym, symU, soft); err != nil {
			return err
		}
		idx += c.numPolys
		nbits -= c.numPolys
	}

	for i := 0; i < nbits; i++ {
		bit := getBit(data, idx+i)
		c.leftoverBits |= uint32(bit) << uint(c.leftoverCount)
		if soft {
			c.leftoverUnc[c.leftoverCount] = u[idx+i]
		}
		c.leftoverCount++
	}
	return nil
}

// DecodeFinish traces the trellis back from the best final state, strips
// the tail if do_tail, and emits the decoded bits forward through the
// decoder sink (spec.md §4.3 "Finish"). It returns the total number of
// decoded output bits and num_errs: the accumulated Hamming distance in
// hard mode, or the accumulated soft distance in soft mode.
func (c *Coder) DecodeFinish() (totalOutBits int, numErrs uint64, err error) {
	cstate := 0
	minVal := c.currPath[0]
	for s := 1; s < c.numStates; s++ {
		if c.currPath[s] < minVal {
			minVal = c.currPath[s]
			cstate = s
		}
	}

	for t := c.ctrellis - 1; t >= 0; t-- {
		pstate := c.trellis[t][cstate]
		bit := c.transitionBit(pstate, cstate)
		c.trellis[t][0] = int(bit)
		cstate = pstate
	}

	outLen := c.ctrellis
	if c.doTail {
		outLen -= c.k - 1
		if outLen < 0 {
			outLen = 0
		}
	}

	for t := 0; t < outLen; t++ {
		if err := c.decWriter.writeBit(uint8(c.trellis[t][0])); err != nil {
			return 0, 0, err
		}
	}
	if err := c.decWriter.flush(); err != nil {
		return 0, 0, err
	}
	return c.decWriter.totalBits, minVal, nil
}

// DecodeBlock is the non-streaming, whole-frame variant of decode: it
// steps the trellis over nbits/num_polys symbols taken directly from data
// (nbits must be a multiple of num_polys), writes the decoded bits into
// out in natural bit order, and, if outUncertainty is non-nil, populates
// it with the running uncertainty accumulator at each output bit position
// (spec.md §4.3 "Block decode").
func (c *Coder) DecodeBlock(data []byte, nbits int, u []uint8, out []byte, outUncertainty []uint64) (numErrs uint64, err error) {
	if nbits%c.numPolys != 0 {
		return 0, configErrorf("nbits must be a multiple of num_polys for DecodeBlock")
	}
	soft := u != nil
	numSymbols := nbits / c.numPolys
	symbols := make([]uint32, numSymbols)
	symU := make([][]uint8, numSymbols)
	startStep := c.ctrellis

	for i := 0; i < numSymbols; i++ {
		off := i * c.numPolys
		sym := extractBits(data, off, c.numPolys)
		symbols[i] = sym
		if soft {
			su := make([]uint8, c.numPolys)
			for j := 0; j < c.numPolys; j++ {
				su[j] = u[off+j]
			}
			symU[i] = su
		}
		if err := c.decodeStepSymbol(sym, symU[i], soft); err != nil {
			return 0, err
		}
	}

	cstate := 0
	minVal := c.currPath[0]
	for s := 1; s < c.numStates; s++ {
		if c.currPath[s] < minVal {
			minVal = c.currPath[s]
			cstate = s
		}
	}

	bitsOut := make([]uint8, numSymbols)
	running := minVal
	for i := numSymbols - 1; i >= 0; i-- {
		t := startStep + i
		pstate := c.trellis[t][cstate]
		b := c.transitionBit(pstate, cstate)
		bitsOut[i] = b
		d := c.symbolDistance(symbols[i], c.tables.out[b][pstate], symU[i], soft)
		running -= d
		if outUncertainty != nil {
			outUncertainty[i] = running
		}
		cstate = pstate
	}

	outLen := numSymbols
	if c.doTail {
		outLen -= c.k - 1
		if outLen < 0 {
			outLen = 0
		}
	}
	for i := 0; i < outLen; i++ {
		setBit(out, i, bitsOut[i])
	}

	return minVal, nil
}
