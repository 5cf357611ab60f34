package fxcore

import (
	"strings"
	"testing"

	"github.com/fortium/fxcore/testutil"
)

func TestEncodeToken(t *testing.T) {
	is := testutil.NewIs(t)

	cases := []struct {
		id    string
		token string
	}{
		{"simple", "simple"},
		{"with-dash_and_underscore", "with-dash_and_underscore"},
		{"ada@fortium.dev", "ada=40fortium=2Edev"},
		{"first.last+tag@example.com", "first=2Elast=2Btag=40example=2Ecom"},
		{"a b", "a=20b"},
		{"", ""},
	}

	for _, c := range cases {
		is.Equal(EncodeToken(c.id), c.token)
	}
}

func TestEncodeTokenIsSubjectSafe(t *testing.T) {
	is := testutil.NewIs(t)

	// No token may contain subject separators or wildcards.
	for _, id := range []string{"a.b.c", "a>*", "nats wild > card", "=already=escaped"} {
		token := EncodeToken(id)
		is.True(!strings.ContainsAny(token, ".>* "))
	}
}

func TestEncodeTokenIsInjective(t *testing.T) {
	is := testutil.NewIs(t)

	// Identities differing only in escaped characters stay distinct.
	a := EncodeToken("a.b")
	b := EncodeToken("a_b")
	c := EncodeToken("a=2Eb")
	is.True(a != b)
	is.True(a != c)
	is.True(b != c)
}

func TestSubject(t *testing.T) {
	is := testutil.NewIs(t)
	is.Equal(Subject("partners", "ada@fortium.dev"), "partners.ada=40fortium=2Edev")
}
