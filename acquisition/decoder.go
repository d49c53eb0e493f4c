package acquisition

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decode extracts the numeric samples carried by a raw chunk read from the
// device. Each line must hold one floating-point literal; anything else is
// dropped. A chunk that is not valid UTF-8 yields nothing. A partial line at
// the end of the chunk is parsed on its own and never carried over. Only
// decimal literals are accepted, plus inf, infinity and nan.
func Decode(chunk []byte) []float64 {
	if len(chunk) == 0 || !utf8.Valid(chunk) {
		return nil
	}

	var values []float64
	for _, line := range strings.Split(string(chunk), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHex(line) {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// isHex reports whether line carries a base prefix. ParseFloat would accept
// hexadecimal floats such as 0x1p4.
func isHex(line string) bool {
	line = strings.TrimLeft(line, "+-")
	return len(line) >= 2 && line[0] == '0' && (line[1] == 'x' || line[1] == 'X')
}
