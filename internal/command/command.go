// Package command holds the helpers shared by the filter and transform parsers: the
// "-name arg arg " command formatting and the numeric argument readers.
package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ParseError reports the first malformed token of an argument vector
type ParseError struct {
	Token string // offending keyword
	Index int    // position of the keyword in the argument vector
	Msg   string
}

func (e *ParseError) Error() string {
	return e.Msg
}

func NewParseError(tokens []string, i int, format string, a ...interface{}) *ParseError {
	return &ParseError{Token: tokens[i], Index: i, Msg: fmt.Sprintf(format, a...)}
}

// Splits a single command string into tokens. Double quoted arguments, as written by Quote,
// stay one token.
func Tokenize(s string) ([]string, error) {
	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "splitting '%s'", s)
	}
	return tokens, nil
}

// Formats v with the shortest decimal representation that parses back to the same float64
func Float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// Formats v with the shortest decimal representation that parses back to the same float32
func Float32(v float32) string {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return decimal.NewFromFloat32(v).String()
}

func Int(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Builds "-name arg1 arg2 " as emitted by every criterion and operation
func Join(name string, args ...string) string {
	var sb strings.Builder
	sb.WriteString("-")
	sb.WriteString(name)
	sb.WriteString(" ")
	for _, a := range args {
		sb.WriteString(a)
		sb.WriteString(" ")
	}
	return sb.String()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote wraps a file name argument in double quotes so Tokenize keeps it whole
func Quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

// Unquote strips the quotes added by Quote, plain tokens are returned as they are
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	if tokens, err := shlex.Split(s); err == nil && len(tokens) == 1 {
		return tokens[0]
	}
	return s
}

// IsNumber reports whether a token starts like an unsigned number, used to find the
// end of variable length argument lists
func IsNumber(token string) bool {
	return len(token) > 0 && token[0] >= '0' && token[0] <= '9'
}

// Needs describes the arguments expected after tokens[i]
func Needs(tokens []string, i int, names []string) string {
	n := len(names)
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Sprintf("'%s' needs %d argument%s: %s", tokens[i], n, plural, strings.Join(names, " "))
}

// Floats parses the len(names) arguments that follow tokens[i]
func Floats(tokens []string, i int, names ...string) ([]float64, error) {
	if i+len(names) >= len(tokens) {
		return nil, NewParseError(tokens, i, "%s", Needs(tokens, i, names))
	}
	values := make([]float64, len(names))
	for j, name := range names {
		v, err := strconv.ParseFloat(tokens[i+1+j], 64)
		if err != nil {
			return nil, NewParseError(tokens, i, "%s but '%s' is no valid %s", Needs(tokens, i, names), tokens[i+1+j], name)
		}
		values[j] = v
	}
	return values, nil
}

// Ints parses the len(names) integer arguments that follow tokens[i]
func Ints(tokens []string, i int, names ...string) ([]int64, error) {
	if i+len(names) >= len(tokens) {
		return nil, NewParseError(tokens, i, "%s", Needs(tokens, i, names))
	}
	values := make([]int64, len(names))
	for j, name := range names {
		v, err := strconv.ParseInt(tokens[i+1+j], 10, 64)
		if err != nil {
			return nil, NewParseError(tokens, i, "%s but '%s' is no valid %s", Needs(tokens, i, names), tokens[i+1+j], name)
		}
		values[j] = v
	}
	return values, nil
}

// Strings returns the len(names) raw arguments that follow tokens[i]
func Strings(tokens []string, i int, names ...string) ([]string, error) {
	if i+len(names) >= len(tokens) {
		return nil, NewParseError(tokens, i, "%s", Needs(tokens, i, names))
	}
	return tokens[i+1 : i+1+len(names)], nil
}

// CheckRange fails when v is outside [min, max]
func CheckRange(tokens []string, i int, name string, v int64, min int64, max int64) error {
	if v < min || v > max {
		return NewParseError(tokens, i, "'%s' needs %s between %d and %d but %s is %d", tokens[i], name, min, max, name, v)
	}
	return nil
}
