package config

import "strconv"

// parseUintAutoBase parses a polynomial string using Go integer-literal
// base rules: a leading "0" is octal, "0x" is hex, otherwise decimal.
func parseUintAutoBase(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
