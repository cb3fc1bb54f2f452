package id

import (
	"crypto/rand"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity id prefixes. Keys derived from these ids embed the prefix, so a
// raw id is enough to tell what kind of record it names.
const (
	PrefixPartner       = "PTN"
	PrefixPartnerUser   = "PUSR"
	PrefixDeal          = "DEAL"
	PrefixQuote         = "QTE"
	PrefixDocument      = "DOC"
	PrefixCertification = "CERT"
	PrefixCommission    = "COM"
	PrefixCourse        = "CRS"
	PrefixProgress      = "PRG"
	PrefixCredential    = "CRED"
)

// New returns a prefixed, time-sortable unique id, e.g. "PTN_01J8...".
func New(prefix string) string {
	u := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return prefix + "_" + u.String()
}

// idShape is the PREFIX_BODY form New produces. Storage locations embed
// raw ids between colon-delimited segments, so an id carrying a colon, or
// a bare word that matches an index dimension, could collide a primary
// record with an index location.
var idShape = regexp.MustCompile(`^[A-Z]+_[0-9A-Za-z]+$`)

// Valid reports whether s is safe to embed in a storage location.
func Valid(s string) bool {
	return idShape.MatchString(s)
}
