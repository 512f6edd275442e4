// Package picture resolves COBOL picture-clause format strings into byte
// lengths and numeric decoding semantics for flat, single-level record
// layouts. Nested groups, OCCURS and REDEFINES are not supported.
package picture

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidFormatSpec    = errors.New("invalid format spec")
	ErrUnsupportedPrecision = errors.New("unsupported binary precision")
)

// Kind is the storage representation a field resolves to.
type Kind string

const (
	DisplayText    Kind = "display_text"
	DisplayNumeric Kind = "display_numeric"
	PackedDecimal  Kind = "packed_decimal"
	BinaryInteger  Kind = "binary_integer"
)

// FieldFormat is the resolved form of one picture-clause string. It is a
// value type derived entirely from Source and is never mutated.
type FieldFormat struct {
	Kind             Kind
	IntegerDigits    int
	FractionalDigits int
	Signed           bool
	ByteLength       int
	Source           string
}

// Numeric reports whether values of this format should be profiled as numbers.
func (f FieldFormat) Numeric() bool {
	return f.Kind == DisplayNumeric || f.Kind == PackedDecimal || f.Kind == BinaryInteger
}

var (
	alphaRe     = regexp.MustCompile(`X\((\d+)\)`)
	digitsRe    = regexp.MustCompile(`(S)?9\((\d+)\)`)
	fracParenRe = regexp.MustCompile(`V9\((\d+)\)`)
	fracRunRe   = regexp.MustCompile(`V(9+)`)
	binaryRe    = regexp.MustCompile(`\b(?:COMP-4|COMP-5|COMP|BINARY)\b`)
)

// Parse resolves a case-insensitive spec string such as "S9(11)V99 COMP-3"
// or "X(20)". Recognition order: alphanumeric, packed decimal, binary
// integer, zoned display numeric.
func Parse(spec string) (FieldFormat, error) {
	s := strings.ToUpper(strings.TrimSpace(spec))
	if s == "" {
		return FieldFormat{}, fmt.Errorf("%w: empty spec", ErrInvalidFormatSpec)
	}

	if m := alphaRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return FieldFormat{}, fmt.Errorf("%w: %q", ErrInvalidFormatSpec, spec)
		}
		return checked(FieldFormat{Kind: DisplayText, ByteLength: n, Source: spec})
	}

	frac, body := splitFraction(s)

	if strings.Contains(body, "COMP-3") || strings.Contains(body, "PACKED") {
		p, signed, ok := parseDigits(body)
		if !ok {
			return FieldFormat{}, fmt.Errorf("%w: packed spec %q has no digit count", ErrInvalidFormatSpec, spec)
		}
		return checked(FieldFormat{
			Kind:             PackedDecimal,
			IntegerDigits:    p,
			FractionalDigits: frac,
			Signed:           signed,
			// Two digits per byte plus the sign nibble.
			ByteLength: (p + frac + 2) / 2,
			Source:     spec,
		})
	}

	if binaryRe.MatchString(body) {
		p, signed, ok := parseDigits(body)
		if !ok {
			return FieldFormat{}, fmt.Errorf("%w: binary spec %q has no digit count", ErrInvalidFormatSpec, spec)
		}
		var n int
		switch {
		case p <= 4:
			n = 2
		case p <= 9:
			n = 4
		case p <= 18:
			n = 8
		default:
			return FieldFormat{}, fmt.Errorf("%w: %d digits in %q", ErrUnsupportedPrecision, p, spec)
		}
		return checked(FieldFormat{
			Kind:             BinaryInteger,
			IntegerDigits:    p,
			FractionalDigits: frac,
			Signed:           signed,
			ByteLength:       n,
			Source:           spec,
		})
	}

	if p, signed, ok := parseDigits(body); ok {
		return checked(FieldFormat{
			Kind:             DisplayNumeric,
			IntegerDigits:    p,
			FractionalDigits: frac,
			Signed:           signed,
			// Sign is zoned into a digit position, never a separate byte.
			ByteLength: p + frac,
			Source:     spec,
		})
	}

	return FieldFormat{}, fmt.Errorf("%w: %q", ErrInvalidFormatSpec, spec)
}

// splitFraction strips the V-marker from s and returns the fractional digit
// count alongside the remaining text. Both "V99" and "V9(2)" forms count as
// two fractional digits.
func splitFraction(s string) (int, string) {
	if m := fracParenRe.FindStringSubmatch(s); m != nil {
		f, _ := strconv.Atoi(m[1])
		return f, strings.Replace(s, m[0], "", 1)
	}
	if m := fracRunRe.FindStringSubmatch(s); m != nil {
		return len(m[1]), strings.Replace(s, m[0], "", 1)
	}
	return 0, s
}

func parseDigits(s string) (p int, signed bool, ok bool) {
	m := digitsRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false, false
	}
	p, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false, false
	}
	return p, m[1] == "S", true
}

func checked(f FieldFormat) (FieldFormat, error) {
	if f.ByteLength <= 0 {
		return FieldFormat{}, fmt.Errorf("%w: %q resolves to zero bytes", ErrInvalidFormatSpec, f.Source)
	}
	return f, nil
}
