// Package filename builds canonical document filenames of the form
// YYYYMMDD_Supplier_InvoiceNumber.pdf from extracted values.
package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Extension is appended to every synthesized filename.
const Extension = ".pdf"

// DocumentToken fills in when neither supplier nor invoice was extracted.
const DocumentToken = "Document"

var (
	tokenSplit   = regexp.MustCompile(`[\s\-_,.]+`)
	nonWordChars = regexp.MustCompile(`[^0-9A-Za-z_]`)

	accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// RemoveAccents strips combining marks via NFD decomposition, so "é"
// becomes "e" and "ç" becomes "c".
func RemoveAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// CamelCase strips accents, splits on whitespace and common separators,
// capitalizes each token and concatenates them. Idempotent: applying it
// to its own output changes nothing.
func CamelCase(s string) string {
	s = RemoveAccents(s)
	var b strings.Builder
	for _, token := range tokenSplit.Split(s, -1) {
		if token == "" {
			continue
		}
		b.WriteString(capitalizeToken(token))
	}
	return b.String()
}

// capitalizeToken uppercases the first rune and lowercases the rest,
// except that tokens already in mixed case (leading capital followed by
// at least one lowercase letter) pass through unchanged. This keeps the
// transform idempotent on previously camel-cased output.
func capitalizeToken(token string) string {
	runes := []rune(token)
	rest := string(runes[1:])
	if unicode.IsUpper(runes[0]) && strings.IndexFunc(rest, unicode.IsLower) >= 0 {
		return token
	}
	return string(unicode.ToUpper(runes[0])) + strings.ToLower(rest)
}

// cleanInvoice strips accents then removes every character outside
// [0-9A-Za-z_], giving a filename-safe reference token.
func cleanInvoice(s string) string {
	return nonWordChars.ReplaceAllString(RemoveAccents(s), "")
}

// Synthesize joins the extracted triple into a filename. Date is always
// present (the caller supplies the run date as fallback); supplier and
// invoice are optional. With neither, the literal Document token is used.
func Synthesize(date, supplier, invoice string) string {
	parts := []string{date}

	if supplier != "" {
		if s := CamelCase(supplier); s != "" {
			parts = append(parts, s)
		}
	}
	if invoice != "" {
		if inv := cleanInvoice(invoice); inv != "" {
			parts = append(parts, inv)
		}
	}

	if len(parts) == 1 {
		parts = append(parts, DocumentToken)
	}

	return strings.Join(parts, "_") + Extension
}
