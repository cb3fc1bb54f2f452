package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProducesValidIDs(t *testing.T) {
	for _, prefix := range []string{PrefixPartner, PrefixDeal, PrefixCredential} {
		s := New(prefix)
		assert.True(t, Valid(s), "generated id %q", s)
	}
}

func TestValidRejectsLocationCollidingIDs(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"PTN_01J8ZZZZZZZZZZZZZZZZZZZZZZ", true},
		{"PTN_01", true},
		{"", false},
		{"rating", false},         // bare dimension word
		{"status:active", false},  // colon splices into the key path
		{"PTN:01", false},         // colon inside the prefix
		{"PTN_01:deals", false},   // colon after a valid head
		{"ptn_01", false},         // prefixes are uppercase
		{"PTN_01 ", false},        // whitespace
		{"PTN_", false},           // empty body
		{"_01J8ZZ", false},        // empty prefix
		{"PTN-01J8ZZ", false},     // wrong separator
		{"PTN_01J8_extra", false}, // second separator
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, Valid(tc.id), "id %q", tc.id)
	}
}
