package value

import (
	"strconv"
	"strings"
)

// formatFloat returns the shortest decimal string that round-trips f,
// in scientific notation, e.g. "1.25e+02".
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'e', -1, 64)
}

// parseSciDecimal splits a lowercase "d.ddde+nn" / "de+nn" string (as
// produced by strconv.FormatFloat with 'e') into an unsigned decimal
// mantissa string and the base-10 exponent that applies to it once the
// decimal point implied by the mantissa is removed, i.e. mantissa *
// 10^exp == the original magnitude.
func parseSciDecimal(s string) (mantissa string, exp int32, err error) {
	mIdx := strings.IndexByte(s, 'e')
	if mIdx < 0 {
		return "", 0, strconv.ErrSyntax
	}
	mantPart := s[:mIdx]
	expPart := s[mIdx+1:]
	e, err := strconv.ParseInt(expPart, 10, 32)
	if err != nil {
		return "", 0, err
	}
	dot := strings.IndexByte(mantPart, '.')
	if dot < 0 {
		return mantPart, int32(e), nil
	}
	intPart := mantPart[:dot]
	fracPart := mantPart[dot+1:]
	mantissa = intPart + fracPart
	exp = int32(e) - int32(len(fracPart))
	return mantissa, exp, nil
}
