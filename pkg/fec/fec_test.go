package fec

import (
	"testing"
)

// bitsFromString turns a string of '0'/'1' characters (one char per bit,
// low-bit-first packing, matching spec.md §8's golden vectors) into a
// byte buffer and its bit count.
func bitsFromString(s string) ([]byte, int) {
	buf := make([]byte, (len(s)+7)/8)
	for i, c := range s {
		if c == '1' {
			setBit(buf, i, 1)
		}
	}
	return buf, len(s)
}

func bitsToString(buf []byte, n int) string {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if getBit(buf, i) != 0 {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

func newHardCoder(t *testing.T, k int, polys []uint32, doTail bool, maxDecodeLen int) (*Coder, *[]byte, *[]byte) {
	t.Helper()
	var encOut, decOut []byte
	c, err := NewCoder(k, polys, maxDecodeLen, doTail, false, ByteSliceSink(&encOut), ByteSliceSink(&decOut))
	if err != nil {
		t.Fatalf("NewCoder: %v", err)
	}
	return c, &encOut, &decOut
}

type scenario struct {
	name        string
	k           int
	polys       []uint32
	doTail      bool
	decodedBits string
	encodedBits string
	numErrs     uint64
}

// hardScenarios covers both directions of the golden vectors: encoding
// decodedBits must reproduce encodedBits, decoding encodedBits must
// reproduce decodedBits. Scenario B is a decode-only corruption vector
// (1-bit-flipped copy of A's encodedBits, same plaintext as A) and is
// deliberately excluded here; see decodeScenarios.
var hardScenarios = []scenario{
	{"A", 3, []uint32{5, 7}, true, "010111001010001", "0011010010011011110100011100110111", 0},
	{"C", 3, []uint32{3, 7}, true, "101100", "0111101000110000", 0},
	{"D", 3, []uint32{5, 3}, true, "1001101", "100111101110010111", 0},
	{"F", 7, []uint32{0117, 0127, 0155}, true, "10110111", "111001101011100110011101111111100110001111", 0},
}

// decodeScenarios adds scenario B, a corrupted version of A's encodedBits
// that the decoder must still resolve to A's plaintext (with num_errs=1).
var decodeScenarios = append(append([]scenario{}, hardScenarios...),
	scenario{"B", 3, []uint32{5, 7}, true, "010111001010001", "0011010010011011110000011100110111", 1},
)

func TestEncodeScenarios(t *testing.T) {
	for _, sc := range hardScenarios {
		t.Run(sc.name, func(t *testing.T) {
			c, encOut, _ := newHardCoder(t, sc.k, sc.polys, sc.doTail, 64)
			in, nbits := bitsFromString(sc.decodedBits)
			if err := c.EncodeStream(in, nbits); err != nil {
				t.Fatalf("EncodeStream: %v", err)
			}
			total, err := c.EncodeFinish()
			if err != nil {
				t.Fatalf("EncodeFinish: %v", err)
			}
			got := bitsToString(*encOut, total)
			if got != sc.encodedBits {
				t.Errorf("encoded = %s, want %s", got, sc.encodedBits)
			}
		})
	}
}

func TestDecodeScenarios(t *testing.T) {
	for _, sc := range decodeScenarios {
		t.Run(sc.name, func(t *testing.T) {
			c, _, decOut := newHardCoder(t, sc.k, sc.polys, sc.doTail, 64)
			if err := c.ReinitDecoder(0, DefaultInitOtherStates); err != nil {
				t.Fatalf("ReinitDecoder: %v", err)
			}
			in, nbits := bitsFromString(sc.encodedBits)
			if err := c.DecodeStream(in, nbits, nil); err != nil {
				t.Fatalf("DecodeStream: %v", err)
			}
			total, numErrs, err := c.DecodeFinish()
			if err != nil {
				t.Fatalf("DecodeFinish: %v", err)
			}
			got := bitsToString(*decOut, total)
			if got != sc.decodedBits {
				t.Errorf("decoded = %s, want %s", got, sc.decodedBits)
			}
			if numErrs != sc.numErrs {
				t.Errorf("num_errs = %d, want %d", numErrs, sc.numErrs)
			}
		})
	}
}

// Scenario E: Voyager 7,1/2 with a single fully-uncertain bit.
func TestDecodeScenarioESoft(t *testing.T) {
	c, _, decOut := newHardCoder(t, 7, []uint32{0171, 0133}, true, 64)
	if err := c.ReinitDecoder(0, DefaultInitOtherStates); err != nil {
		t.Fatalf("ReinitDecoder: %v", err)
	}
	encoded := "0011100010011010100111011100"
	in, nbits := bitsFromString(encoded)
	u := make([]uint8, nbits)
	u[4] = 100
	if err := c.DecodeStream(in, nbits, u); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	total, numErrs, err := c.DecodeFinish()
	if err != nil {
		t.Fatalf("DecodeFinish: %v", err)
	}
	got := bitsToString(*decOut, total)
	if want := "01011010"; got != want {
		t.Errorf("decoded = %s, want %s", got, want)
	}
	if numErrs != 100 {
		t.Errorf("num_errs = %d, want 100", numErrs)
	}
}

func TestEncodeBlockMatchesStream(t *testing.T) {
	for _, sc := range hardScenarios {
		t.Run(sc.name, func(t *testing.T) {
			c, _, _ := newHardCoder(t, sc.k, sc.polys, sc.doTail, 64)
			in, nbits := bitsFromString(sc.decodedBits)
			outBits := (nbits + sc.k - 1) * len(sc.polys)
			out := make([]byte, (outBits+7)/8)
			n, err := c.EncodeBlock(in, nbits, out)
			if err != nil {
				t.Fatalf("EncodeBlock: %v", err)
			}
			if n != outBits {
				t.Fatalf("EncodeBlock wrote %d bits, want %d", n, outBits)
			}
			got := bitsToString(out, outBits)
			if got != sc.encodedBits {
				t.Errorf("block-encoded = %s, want %s", got, sc.encodedBits)
			}
		})
	}
}

func TestDecodeBlockMatchesStreamFinish(t *testing.T) {
	for _, sc := range decodeScenarios {
		t.Run(sc.name, func(t *testing.T) {
			c, _, _ := newHardCoder(t, sc.k, sc.polys, sc.doTail, 64)
			if err := c.ReinitDecoder(0, DefaultInitOtherStates); err != nil {
				t.Fatalf("ReinitDecoder: %v", err)
			}
			in, nbits := bitsFromString(sc.encodedBits)
			out := make([]byte, (len(sc.decodedBits)+7)/8)
			numErrs, err := c.DecodeBlock(in, nbits, nil, out, nil)
			if err != nil {
				t.Fatalf("DecodeBlock: %v", err)
			}
			got := bitsToString(out, len(sc.decodedBits))
			if got != sc.decodedBits {
				t.Errorf("block-decoded = %s, want %s", got, sc.decodedBits)
			}
			if numErrs != sc.numErrs {
				t.Errorf("num_errs = %d, want %d", numErrs, sc.numErrs)
			}
		})
	}
}

// TestDecodeStepTieBreakPicksLowPredecessor forces an exact path-metric tie
// between a state's two predecessors and checks the survivor is p0, the
// low-top-bit predecessor (spec.md §4.3: "Strict '<' in the survivor
// choice; on equality pick p0"). The golden scenarios hit ties too, but
// only indirectly through their decoded output; this constructs one
// directly against the coder's own transition tables so the tied state and
// its expected survivor are known exactly.
func TestDecodeStepTieBreakPicksLowPredecessor(t *testing.T) {
	c, _, _ := newHardCoder(t, 3, []uint32{5, 7}, true, 64)
	if err := c.ReinitDecoder(0, 0); err != nil {
		t.Fatalf("ReinitDecoder: %v", err)
	}

	var target = -1
	var p0, p1 int
	var out0, out1 uint32
	for s := 0; s < c.numStates; s++ {
		cp0, cp1 := c.predecessors(s)
		if cp0 == cp1 {
			continue
		}
		b0 := c.transitionBit(cp0, s)
		b1 := c.transitionBit(cp1, s)
		co0 := c.tables.out[b0][cp0]
		co1 := c.tables.out[b1][cp1]
		// Complementary outputs (differ in both bits) mean every symbol is
		// equidistant from one of them, and an exact halfway symbol ties.
		if co0^co1 == 3 {
			target, p0, p1, out0, out1 = s, cp0, cp1, co0, co1
			break
		}
	}
	if target < 0 {
		t.Fatal("no state in this trellis has complementary predecessor outputs; test setup invalid")
	}

	symbol := out0 ^ 1 // one bit off from out0, and by complementarity one bit off from out1 too
	if err := c.decodeStepSymbol(symbol, nil, false); err != nil {
		t.Fatalf("decodeStepSymbol: %v", err)
	}

	col := c.trellis[0]
	if col[target] != p0 {
		t.Errorf("state %d: survivor = %d, want p0 = %d (tie should favor low-top-bit predecessor)", target, col[target], p0)
	}
	// decodeStepSymbol swaps currPath/nextPath after writing, so the fresh
	// metric for this step now lives in currPath.
	if c.currPath[target] != 1 {
		t.Errorf("state %d: tied path metric = %d, want 1", target, c.currPath[target])
	}
	_, _ = out1, p1
}

func TestSymbolModeInvocationCount(t *testing.T) {
	var calls int
	var lastN int
	sink := func(b byte, n int) error {
		calls++
		lastN = n
		return nil
	}
	c, err := NewCoder(3, []uint32{5, 7}, 0, true, false, sink, nil)
	if err != nil {
		t.Fatalf("NewCoder: %v", err)
	}
	c.SetEncodeOutputPerSymbol(true)

	in, nbits := bitsFromString("010111001010001")
	if err := c.EncodeStream(in, nbits); err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	if _, err := c.EncodeFinish(); err != nil {
		t.Fatalf("EncodeFinish: %v", err)
	}

	want := nbits + (3 - 1)
	if calls != want {
		t.Errorf("symbol-mode sink called %d times, want %d", calls, want)
	}
	if lastN != 2 {
		t.Errorf("last sink call had nbits=%d, want num_polys=2", lastN)
	}
}

func TestTailLength(t *testing.T) {
	c, encOut, _ := newHardCoder(t, 3, []uint32{5, 7}, true, 64)
	in, nbits := bitsFromString("010111001010001")
	if err := c.EncodeStream(in, nbits); err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	total, err := c.EncodeFinish()
	if err != nil {
		t.Fatalf("EncodeFinish: %v", err)
	}
	want := (nbits + 3 - 1) * 2
	if total != want {
		t.Errorf("total_out_bits = %d, want %d", total, want)
	}
	_ = encOut
}

func TestInterleaveIsInvolutionPair(t *testing.T) {
	tests := []struct {
		totalBits, cols int
	}{
		{20, 4}, {21, 4}, {104, 26}, {9 * 20, 9}, {17, 5}, {1, 1},
	}
	for _, tc := range tests {
		in := make([]byte, (tc.totalBits+7)/8)
		for i := 0; i < tc.totalBits; i++ {
			if (i*2654435761)%7 < 3 { // pseudo-random but deterministic
				setBit(in, i, 1)
			}
		}
		interleaved := make([]byte, (tc.totalBits+7)/8)
		InterleaveBlock(tc.cols, tc.totalBits, in, interleaved)
		out := make([]byte, (tc.totalBits+7)/8)
		DeinterleaveBlock(tc.cols, tc.totalBits, interleaved, out)
		for i := 0; i < tc.totalBits; i++ {
			if getBit(in, i) != getBit(out, i) {
				t.Fatalf("cols=%d totalBits=%d: bit %d mismatch after round trip", tc.cols, tc.totalBits, i)
			}
		}
	}
}

func TestReinitDecoderRejectsOutOfRangeStartState(t *testing.T) {
	c, _, _ := newHardCoder(t, 3, []uint32{5, 7}, true, 32)
	if err := c.ReinitDecoder(c.NumStates(), DefaultInitOtherStates); err == nil {
		t.Error("expected error for out-of-range start state")
	}
}

func TestDecodeCapacityExceeded(t *testing.T) {
	c, _, _ := newHardCoder(t, 3, []uint32{5, 7}, false, 2) // trellisSize = 2 + 3*2 = 8
	if err := c.ReinitDecoder(0, DefaultInitOtherStates); err != nil {
		t.Fatalf("ReinitDecoder: %v", err)
	}
	// 16 symbols of 2 bits = 32 bits; the guard ctrellis+num_polys > 8
	// stops the decoder after 7 steps.
	in := make([]byte, 4)
	err := c.DecodeStream(in, 32, nil)
	if err != ErrCapacityExceeded {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestSinkErrorAborts(t *testing.T) {
	boom := errAfter(1)
	c, err := NewCoder(3, []uint32{5, 7}, 0, false, false, boom.sink, nil)
	if err != nil {
		t.Fatalf("NewCoder: %v", err)
	}
	c.SetEncodeOutputPerSymbol(true)
	in, nbits := bitsFromString("0101")
	if err := c.EncodeStream(in, nbits); err == nil {
		t.Error("expected sink error to propagate")
	}
}

type errAfter int

func (e *errAfter) sink(b byte, n int) error {
	if *e <= 0 {
		return errBoom
	}
	*e--
	return nil
}

var errBoom = errConstSink("boom")

type errConstSink string

func (e errConstSink) Error() string { return string(e) }
