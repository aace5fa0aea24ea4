// Package grading decides whether a free-text answer matches the expected one.
package grading

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TolerancePercent is the share of the expected answer's length that may be misspelled.
const TolerancePercent = 15

// Outcome is the verdict of the fuzzy grader
type Outcome int

const (
	Fail Outcome = iota
	SoftPass
	Exact
)

func (o Outcome) String() string {
	switch o {
	case Exact:
		return "exact"
	case SoftPass:
		return "soft_pass"
	default:
		return "fail"
	}
}

// Passed reports whether the answer is accepted.
func (o Outcome) Passed() bool {
	return o == Exact || o == SoftPass
}

// MarshalText renders the outcome by name in JSON payloads.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result holds the grader's verdict and the numbers behind it
type Result struct {
	Outcome   Outcome `json:"outcome"`
	Distance  int     `json:"distance"`
	Threshold int     `json:"threshold"`
}

// Grade compares answer against correct, tolerating case, diacritics,
// surrounding punctuation and small spelling mistakes.
func Grade(answer, correct string) Result {
	a := Normalize(answer)
	c := Normalize(correct)

	if a == c && a != "" {
		return Result{Outcome: Exact}
	}

	threshold := Threshold(c)
	if a == "" {
		return Result{Outcome: Fail, Distance: len([]rune(c)), Threshold: threshold}
	}

	distance := levenshtein.Distance(a, c, nil)
	if distance <= threshold {
		return Result{Outcome: SoftPass, Distance: distance, Threshold: threshold}
	}
	return Result{Outcome: Fail, Distance: distance, Threshold: threshold}
}

// Threshold returns the maximum edit distance accepted for an expected answer,
// ceil(len * 15%) counted in runes.
func Threshold(normalizedCorrect string) int {
	n := len([]rune(normalizedCorrect))
	return (n*TolerancePercent + 99) / 100
}

// Normalize lowercases s, strips diacritics and surrounding punctuation,
// and collapses whitespace.
func Normalize(s string) string {
	// transform.Chain keeps state, so each call gets its own
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.TrimFunc(out, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(out), " ")
}
