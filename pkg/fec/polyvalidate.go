package fec

import "fmt"

// ValidatePolynomial rejects a generator polynomial that does not fit in
// k bits before it reaches buildTables and silently corrupts the state
// machine. The original C source accepts any value here; this check is a
// deliberate addition (see DESIGN.md).
func ValidatePolynomial(k int, poly uint32) error {
	if k < 1 || k > 16 {
		return fmt.Errorf("fec: k must be in [1,16], got %d", k)
	}
	max := uint32(1) << uint(k)
	if poly == 0 || poly >= max {
		return fmt.Errorf("fec: polynomial %#o does not fit in %d bits", poly, k)
	}
	return nil
}
