// Package password validates password strength and hashes passwords with
// bcrypt.
package password

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ccojocar/zxcvbn-go/frequency"

	dErrors "condo/pkg/domain-errors"
	"condo/pkg/email"
)

const (
	// MinLength is the shortest accepted password.
	MinLength = 8
	// MaxSimilarity is the quick ratio at or above which a password counts
	// as too similar to a personal attribute.
	MaxSimilarity = 0.7
)

// common_passwords.txt supplements the zxcvbn password frequency list with
// suffixed variants it lacks.
//
//go:embed common_passwords.txt
var commonList string

var commonPasswords = loadCommon(commonList, frequency.Lists["Passwords"].List)

func loadCommon(raw string, lists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, list := range lists {
		for _, pw := range list {
			out[strings.ToLower(pw)] = struct{}{}
		}
	}
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out[strings.ToLower(line)] = struct{}{}
		}
	}
	return out
}

// Attributes are the personal values a password must not resemble.
type Attributes struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

type attribute struct {
	label string
	value string
}

func (a Attributes) list() []attribute {
	return []attribute{
		{"username", a.Username},
		{"email address", email.LocalPart(a.Email)},
		{"first name", a.FirstName},
		{"last name", a.LastName},
	}
}

// Violations returns every rule pw breaks, in a stable order.
func Violations(pw string, attrs Attributes) []string {
	var out []string
	if label, ok := similarTo(pw, attrs); ok {
		out = append(out, "The password is too similar to the "+label+".")
	}
	if utf8.RuneCountInString(pw) < MinLength {
		out = append(out, "This password is too short. It must contain at least 8 characters.")
	}
	if IsCommon(pw) {
		out = append(out, "This password is too common.")
	}
	if isNumeric(pw) {
		out = append(out, "This password is entirely numeric.")
	}
	return out
}

// Validate reports all violations as field errors on field.
func Validate(field, pw string, attrs Attributes) error {
	violations := Violations(pw, attrs)
	if len(violations) == 0 {
		return nil
	}
	fields := dErrors.FieldErrors{}
	for _, v := range violations {
		fields.Add(field, v)
	}
	return fields.Err()
}

// IsCommon reports whether pw, ignoring case and surrounding space, is a
// known common password.
func IsCommon(pw string) bool {
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(pw))]
	return ok
}

func isNumeric(pw string) bool {
	if pw == "" {
		return false
	}
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var nonWord = regexp.MustCompile(`\W+`)

func similarTo(pw string, attrs Attributes) (string, bool) {
	if pw == "" {
		return "", false
	}
	lower := strings.ToLower(pw)
	for _, attr := range attrs.list() {
		if attr.value == "" {
			continue
		}
		parts := append(nonWord.Split(attr.value, -1), attr.value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pw, part) {
				continue
			}
			if QuickRatio(lower, strings.ToLower(part)) >= MaxSimilarity {
				return attr.label, true
			}
		}
	}
	return "", false
}

// exceedsLengthRatio skips attribute parts so short relative to the
// password that they cannot plausibly dominate it.
func exceedsLengthRatio(pw, value string) bool {
	pwLen := utf8.RuneCountInString(pw)
	valueLen := utf8.RuneCountInString(value)
	bound := MaxSimilarity / 2 * float64(pwLen)
	return pwLen >= 10*valueLen && float64(valueLen) < bound
}

// QuickRatio is 2*M/T where M counts the characters a and b share as
// multisets and T is their combined length. It is an upper bound on the
// longest-matching-blocks ratio and ignores order.
func QuickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
