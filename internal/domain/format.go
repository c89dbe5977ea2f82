package domain

import "strings"

// Humanize turns a snake_case value such as "cash_on_delivery" into
// "Cash On Delivery" for documents and e-mails.
func Humanize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
