package cookie

//
// cookie_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"testing"

	"gitlab.com/kabes/go-httpd/internal/assert"
)

func TestCookieString(t *testing.T) {
	tests := []struct {
		cookie   *Cookie
		expected string
	}{
		{New("a", "1"), "a=1; Path=/; HttpOnly; SameSite=Lax"},
		{New("a", "1").WithMaxAge(0), "a=1; Path=/; Max-Age=0; HttpOnly; SameSite=Lax"},
		{New("a", "1").WithMaxAge(-5), "a=1; Path=/; HttpOnly; SameSite=Lax"},
		{
			New("sid", "x").WithDomain("example.com").WithPath("/app").WithMaxAge(3600),
			"sid=x; Path=/app; Domain=example.com; Max-Age=3600; HttpOnly; SameSite=Lax",
		},
		{New("a", "").WithHTTPOnly(false), "a=; Path=/; SameSite=Lax"},
		{
			New("tok", "v").WithSecure(true).WithSameSite(SameSiteStrict).WithMaxAge(60),
			"tok=v; Path=/; Max-Age=60; HttpOnly; Secure; SameSite=Strict",
		},
		{New("a", "1").WithSecure(true).WithSameSite(SameSiteNone), "a=1; Path=/; HttpOnly; Secure; SameSite=None"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.cookie.String(), tt.expected)
		})
	}
}

func TestCookieRoundTrip(t *testing.T) {
	cookies := []*Cookie{
		New("a", "1"),
		New("sid", "x").WithDomain("example.com").WithPath("/app").WithMaxAge(3600),
		New("tok", "v").WithSecure(true).WithSameSite(SameSiteStrict).WithMaxAge(0),
		New("a", "1").WithSameSite(SameSiteNone),
	}

	for _, c := range cookies {
		t.Run(c.String(), func(t *testing.T) {
			parsed, err := Parse(c.String())
			assert.NoErr(t, err)
			assert.Equal(t, parsed, c)
		})
	}
}

func TestParseAttributes(t *testing.T) {
	c, err := Parse("sid=abc; PATH=/x; max-AGE=12; httponly; SECURE; samesite=strict; Unknown=1")
	assert.NoErr(t, err)
	assert.Equal(t, c.Name, "sid")
	assert.Equal(t, c.Value, "abc")
	assert.Equal(t, c.Path, "/x")
	assert.Equal(t, c.MaxAge, 12)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, c.SameSite, SameSiteStrict)

	// invalid max-age and samesite are ignored
	c, err = Parse("sid=abc; Max-Age=abc; SameSite=whatever")
	assert.NoErr(t, err)
	assert.Equal(t, c.MaxAge, -1)
	assert.Equal(t, c.SameSite, SameSiteLax)
	assert.Equal(t, c.Path, "/")

	// flags not listed keep defaults
	c, err = Parse("sid=abc")
	assert.NoErr(t, err)
	assert.True(t, c.HTTPOnly)
	assert.True(t, !c.Secure)
	assert.Equal(t, c, New("sid", "abc"))

	// value-less cookie
	c, err = Parse("flag")
	assert.NoErr(t, err)
	assert.Equal(t, c.Name, "flag")
	assert.Equal(t, c.Value, "")

	_, err = Parse("=abc; Path=/")
	assert.ErrSpec(t, err, ErrInvalidCookie)
}

func TestParseHeader(t *testing.T) {
	cookies := ParseHeader("a=1; b=2")
	assert.Equal(t, len(cookies), 2)
	assert.Equal(t, cookies["a"].Value, "1")
	assert.Equal(t, cookies["b"].Value, "2")

	cookies = ParseHeader(" a=1;;b ; =x; a=3; c=x=y")
	assert.Equal(t, len(cookies), 2)
	assert.Equal(t, cookies["a"].Value, "3")
	assert.Equal(t, cookies["c"].Value, "x=y")

	assert.Equal(t, len(ParseHeader("")), 0)

	// request cookies get the same defaults as New
	cookies = ParseHeader("JSESSIONID=abc")
	assert.Equal(t, cookies["JSESSIONID"], New("JSESSIONID", "abc"))
}

func TestExpired(t *testing.T) {
	c := New("sid", "abc").WithSecure(true)
	e := c.Expired()
	assert.Equal(t, e.String(), "sid=; Path=/; Max-Age=0; HttpOnly; Secure; SameSite=Lax")
	// original not changed
	assert.Equal(t, c.Value, "abc")
	assert.Equal(t, c.MaxAge, -1)
}
