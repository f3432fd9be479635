package fec

import "math"

// DefaultInitOtherStates is the default bias spec.md §6 assigns to every
// non-start state on ReinitDecoder: large enough to dominate any realistic
// path metric while leaving headroom against overflow for several-symbol
// additions.
const DefaultInitOtherStates = math.MaxUint32 / 2

// DefaultUncertainty100 is the value that maps to "100% uncertain" in
// soft-decoding inputs when not otherwise configured.
const DefaultUncertainty100 = 100

// Coder is a single handle owning all state for one encode+decode pair on
// a shared polynomial set (spec.md §3, "Coder handle").
type Coder struct {
	k         int
	polys     []uint32 // bit-reversed, k-bit wide
	numPolys  int
	numStates int
	doTail    bool
	recursive bool

	tables *stateTables

	encState      int
	encWriter     *bitWriter
	encSymbolMode bool

	decWriter      *bitWriter
	trellisSize    int
	trellis        [][]int // trellis[column][state] -> predecessor state
	currPath       []uint64
	nextPath       []uint64
	ctrellis       int
	uncertainty100 uint8

	leftoverBits  uint32
	leftoverCount int
	leftoverUnc   []uint8
}

// NewCoder constructs a Coder. maxDecodeLenBits of 0 disables decoding
// (no trellis is allocated); encSink/decSink may be nil if the caller only
// ever uses the *Block variants.
func NewCoder(k int, polys []uint32, maxDecodeLenBits int, doTail, recursive bool, encSink, decSink Sink) (*Coder, error) {
	if k < 1 || k > 16 {
		return nil, configErrorf("k must be in [1,16]")
	}
	if len(polys) < 1 || len(polys) > 16 {
		return nil, configErrorf("num_polys must be in [1,16]")
	}

	numStates := 1 << uint(k-1)
	rev := make([]uint32, len(polys))
	for i, p := range polys {
		rev[i] = reversePoly(p, k)
	}

	c := &Coder{
		k:              k,
		polys:          rev,
		numPolys:       len(polys),
		numStates:      numStates,
		doTail:         doTail,
		recursive:      recursive,
		tables:         buildTables(k, rev, recursive),
		uncertainty100: DefaultUncertainty100,
	}

	if encSink != nil {
		c.encWriter = newBitWriter(encSink)
	}
	if decSink != nil {
		c.decWriter = newBitWriter(decSink)
	}

	if maxDecodeLenBits > 0 {
		c.trellisSize = maxDecodeLenBits + k*c.numPolys
		c.trellis = make([][]int, c.trellisSize)
		for i := range c.trellis {
			c.trellis[i] = make([]int, numStates)
		}
		c.currPath = make([]uint64, numStates)
		c.nextPath = make([]uint64, numStates)
	}

	c.leftoverUnc = make([]uint8, c.numPolys)
	return c, nil
}

// K returns the configured constraint length.
func (c *Coder) K() int { return c.k }

// NumPolys returns the configured number of generator polynomials.
func (c *Coder) NumPolys() int { return c.numPolys }

// NumStates returns 2^(k-1).
func (c *Coder) NumStates() int { return c.numStates }

// SetEncodeOutputPerSymbol switches the encoder's output sink between
// byte-packed mode (default) and one sink call per num_polys-bit symbol.
func (c *Coder) SetEncodeOutputPerSymbol(perSymbol bool) {
	c.encSymbolMode = perSymbol
	if c.encWriter == nil {
		return
	}
	if perSymbol {
		c.encWriter.setSymbolMode(c.numPolys)
	} else {
		c.encWriter.setSymbolMode(0)
	}
}

// SetDecodeMaxUncertainty sets uncertainty_100, the value representing
// full uncertainty in soft-decision inputs.
func (c *Coder) SetDecodeMaxUncertainty(u uint8) {
	c.uncertainty100 = u
}

// ReinitEncoder resets the encoder shift register to startState and clears
// the output accumulator.
func (c *Coder) ReinitEncoder(startState int) error {
	if startState < 0 || startState >= c.numStates {
		return configErrorf("start_state out of range")
	}
	c.encState = startState
	if c.encWriter != nil {
		c.encWriter.reset()
	}
	return nil
}

// ReinitDecoder resets the decoder: path metrics are seeded with startState
// at 0 and every other state at initOtherStates (spec.md §6 default:
// DefaultInitOtherStates), the trellis step counter is cleared, and any
// buffered leftover streaming bits are discarded.
func (c *Coder) ReinitDecoder(startState int, initOtherStates uint64) error {
	if startState < 0 || startState >= c.numStates {
		return configErrorf("start_state out of range")
	}
	if c.trellisSize == 0 {
		return configErrorf("decoding disabled: max_decode_len_bits was 0")
	}
	for s := range c.currPath {
		if s == startState {
			c.currPath[s] = 0
		} else {
			c.currPath[s] = initOtherStates
		}
		c.nextPath[s] = 0
	}
	c.ctrellis = 0
	c.leftoverCount = 0
	c.leftoverBits = 0
	if c.decWriter != nil {
		c.decWriter.reset()
	}
	return nil
}

// ReinitBoth reinitializes both the encoder and the decoder.
func (c *Coder) ReinitBoth(encStart, decStart int, decInitOther uint64) error {
	if err := c.ReinitEncoder(encStart); err != nil {
		return err
	}
	return c.ReinitDecoder(decStart, decInitOther)
}

// transitionBit recovers the input bit that drives the transition from
// predecessor p to successor s (spec.md §4.3 step 2).
func (c *Coder) transitionBit(p, s int) uint8 {
	if !c.recursive {
		return uint8(s & 1)
	}
	if c.tables.next[0][p] == s {
		return 0
	}
	return 1
}
