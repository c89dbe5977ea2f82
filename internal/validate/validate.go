package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Bangladeshi mobile numbers (+8801XXXXXXXXX / 01XXXXXXXXX) and general
	// international numbers with optional separators.
	rePhone = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[\p{L}\p{N} _'\-]{1,50}$`)
	reToken = regexp.MustCompile(`^[\p{L}\p{N} _&/-]{1,40}$`)
	reUser  = regexp.MustCompile(`^[A-Za-z0-9_.@:-]{1,64}$`)
	reUUID  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, rePhone.MatchString(s)
}

// Email accepts an empty value; shipping e-mail is optional.
func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	if len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if r := []rune(s); len(r) > 50 {
		s = string(r[:50])
	}
	return s, reQ.MatchString(s)
}

// Token validates a filter value such as a crop type or region name.
func Token(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reToken.MatchString(s)
}

func UserID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reUser.MatchString(s)
}

func OrderID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUUID.MatchString(s)
}

// Page parses a 1-indexed page number, falling back to 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PerPage parses a page size, falling back to def and clamping to max.
func PerPage(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Text trims a free-form field and enforces a maximum rune length.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, len([]rune(s)) <= max
}
