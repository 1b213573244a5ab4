// Package ident mints short correlation identifiers used only to make
// log lines about a particular cell or collector instance readable.
// These ids are never used for equality, hashing, or map keys — the
// rc and collector packages use pointer identity for that — so a
// collision here has no correctness consequence, only a confusing log
// line.
package ident

import "github.com/google/uuid"

// Short returns an 8-character correlation id.
func Short() string {
	return uuid.NewString()[:8]
}
