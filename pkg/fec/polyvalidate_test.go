package fec

import "testing"

func TestValidatePolynomial(t *testing.T) {
	cases := []struct {
		k    int
		poly uint32
		ok   bool
	}{
		{3, 5, true},
		{3, 7, true},
		{3, 8, false}, // does not fit in 3 bits
		{3, 0, false},
		{0, 5, false},
		{17, 5, false},
		{7, 0171, true},
	}
	for _, tc := range cases {
		err := ValidatePolynomial(tc.k, tc.poly)
		if (err == nil) != tc.ok {
			t.Errorf("ValidatePolynomial(%d, %#o) err=%v, want ok=%v", tc.k, tc.poly, err, tc.ok)
		}
	}
}
