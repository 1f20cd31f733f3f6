package dbfixture

import (
	"fmt"
	"strings"
)

// debugPrefixes mark a connection string whose statements should be logged.
var debugPrefixes = []string{"dumper", "debug"}

// DSN is a parsed connection string of the form [dumper:]<dialect>:<locator>.
type DSN struct {
	Raw     string
	Debug   bool
	Dialect string
	Locator string
}

// ParseDSN splits a connection string into its dialect and locator. The
// dialect is lower-cased; the locator is passed to the dialect untouched.
// URL-style strings ("postgres://...") keep the scheme in the locator.
func ParseDSN(s string) (DSN, error) {
	dsn := DSN{Raw: s}
	rest := strings.TrimSpace(s)

	if head, tail, ok := strings.Cut(rest, ":"); ok {
		for _, p := range debugPrefixes {
			if strings.EqualFold(head, p) {
				dsn.Debug = true
				rest = tail
				break
			}
		}
	}

	dialect, locator, ok := strings.Cut(rest, ":")
	if !ok || strings.TrimSpace(dialect) == "" {
		return DSN{}, fmt.Errorf("dsn %q: expected <dialect>:<locator>", s)
	}
	dsn.Dialect = strings.ToLower(strings.TrimSpace(dialect))
	if strings.HasPrefix(locator, "//") {
		locator = rest
	}
	dsn.Locator = locator
	return dsn, nil
}

func (d DSN) String() string { return d.Raw }
