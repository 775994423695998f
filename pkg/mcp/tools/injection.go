package tools

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// checkInjection scans a free-text tool parameter for SQL injection
// patterns. Mentions eventually reach generated SQL as literals, so
// hostile input is rejected at the tool boundary rather than trusted to
// downstream quoting.
//
// Returns the libinjection fingerprint and true when a pattern is
// detected.
func checkInjection(value string) (string, bool) {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return "", false
	}
	return string(fingerprint), true
}
