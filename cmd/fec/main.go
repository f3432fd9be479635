// Command fec is a harness over pkg/fec: it encodes or decodes a single
// bit-string against a caller-supplied polynomial set, or runs the
// library's built-in golden scenarios with -t.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dbehnke/convcode/pkg/fec"
)

// polyList collects repeated -p flag values, accepting octal via a
// leading 0 the same way strconv's base-0 parsing does.
type polyList []uint32

func (p *polyList) String() string {
	parts := make([]string, len(*p))
	for i, v := range *p {
		parts[i] = strconv.FormatUint(uint64(v), 8)
	}
	return strings.Join(parts, ",")
}

func (p *polyList) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid polynomial %q: %w", s, err)
	}
	*p = append(*p, uint32(v))
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("fec", flag.ContinueOnError)
	fs.SetOutput(stderr)

	runTests := fs.Bool("t", false, "run the built-in scenario tests and exit")
	noTail := fs.Bool("x", false, "disable tail termination")
	decode := fs.Bool("d", false, "decode mode")
	encode := fs.Bool("e", false, "encode mode")
	recursive := fs.Bool("r", false, "recursive (systematic) mode")
	startState := fs.Int("s", 0, "start state")
	initOther := fs.Uint64("i", fec.DefaultInitOtherStates, "init_other_states")
	var polys polyList
	fs.Var(&polys, "p", "append a generator polynomial (octal accepted, e.g. 0171); repeatable")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *runTests {
		return runScenarios(stdout, stderr)
	}

	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(stderr, "usage: fec [-x] [-r] [-s N] [-i N] -p N [-p N ...] (-e|-d) k bitstring")
		return 1
	}
	if *encode == *decode {
		fmt.Fprintln(stderr, "exactly one of -e or -d is required")
		return 1
	}
	if len(polys) == 0 {
		fmt.Fprintln(stderr, "at least one -p polynomial is required")
		return 1
	}

	k, err := strconv.Atoi(rest[0])
	if err != nil {
		fmt.Fprintf(stderr, "invalid k: %v\n", err)
		return 1
	}
	for _, p := range polys {
		if err := fec.ValidatePolynomial(k, p); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
	}
	bitstr := rest[1]

	in := make([]byte, (len(bitstr)+7)/8)
	for i, c := range bitstr {
		if c == '1' {
			in[i>>3] |= 1 << uint(i&7)
		} else if c != '0' {
			fmt.Fprintf(stderr, "bitstring must contain only 0/1, got %q\n", c)
			return 1
		}
	}
	nbits := len(bitstr)

	doTail := !*noTail

	if *encode {
		var encOut []byte
		c, err := fec.NewCoder(k, polys, 0, doTail, *recursive, fec.ByteSliceSink(&encOut), nil)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if err := c.ReinitEncoder(*startState); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if err := c.EncodeStream(in, nbits); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		total, err := c.EncodeFinish()
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, bitString(encOut, total))
		return 0
	}

	var decOut []byte
	c, err := fec.NewCoder(k, polys, nbits, doTail, *recursive, nil, fec.ByteSliceSink(&decOut))
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if err := c.ReinitDecoder(*startState, *initOther); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if err := c.DecodeStream(in, nbits, nil); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	total, numErrs, err := c.DecodeFinish()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s num_errs=%d\n", bitString(decOut, total), numErrs)
	return 0
}

func bitString(buf []byte, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		if (buf[i>>3]>>uint(i&7))&1 != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// scenario mirrors pkg/fec's golden vectors from spec.md §8 so `-t` can be
// run without a test binary.
type scenario struct {
	name        string
	k           int
	polys       []uint32
	recursive   bool
	decodedBits string
	encodedBits string
	numErrs     uint64
}

var scenarios = []scenario{
	{"A", 3, []uint32{5, 7}, false, "010111001010001", "0011010010011011110100011100110111", 0},
	{"B", 3, []uint32{5, 7}, false, "010111001010001", "0011010010011011110000011100110111", 1},
	{"C", 3, []uint32{3, 7}, false, "101100", "0111101000110000", 0},
	{"D", 3, []uint32{5, 3}, false, "1001101", "100111101110010111", 0},
	{"F", 7, []uint32{0117, 0127, 0155}, false, "10110111", "111001101011100110011101111111100110001111", 0},
}

func runScenarios(stdout, stderr *os.File) int {
	ok := true
	for _, sc := range scenarios {
		var decOut []byte
		c, err := fec.NewCoder(sc.k, sc.polys, 64, true, sc.recursive, nil, fec.ByteSliceSink(&decOut))
		if err != nil {
			fmt.Fprintf(stderr, "%s: NewCoder: %v\n", sc.name, err)
			ok = false
			continue
		}
		in := make([]byte, (len(sc.encodedBits)+7)/8)
		for i, ch := range sc.encodedBits {
			if ch == '1' {
				in[i>>3] |= 1 << uint(i&7)
			}
		}
		if err := c.ReinitDecoder(0, fec.DefaultInitOtherStates); err != nil {
			fmt.Fprintf(stderr, "%s: ReinitDecoder: %v\n", sc.name, err)
			ok = false
			continue
		}
		if err := c.DecodeStream(in, len(sc.encodedBits), nil); err != nil {
			fmt.Fprintf(stderr, "%s: DecodeStream: %v\n", sc.name, err)
			ok = false
			continue
		}
		total, numErrs, err := c.DecodeFinish()
		if err != nil {
			fmt.Fprintf(stderr, "%s: DecodeFinish: %v\n", sc.name, err)
			ok = false
			continue
		}
		got := bitString(decOut, total)
		pass := got == sc.decodedBits && numErrs == sc.numErrs
		status := "PASS"
		if !pass {
			status = "FAIL"
			ok = false
		}
		fmt.Fprintf(stdout, "%s %s decoded=%s num_errs=%d\n", status, sc.name, got, numErrs)
	}
	if !ok {
		return 1
	}
	return 0
}
