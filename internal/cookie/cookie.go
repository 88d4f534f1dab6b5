package cookie

//
// cookie.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/kabes/go-httpd/internal/aerr"
)

var ErrInvalidCookie = aerr.NewSimple("invalid cookie").WithTag(aerr.ProtocolError)

// SameSite is value of SameSite cookie attribute. Zero value is Lax.
type SameSite int

const (
	SameSiteLax SameSite = iota
	SameSiteStrict
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteStrict:
		return "Strict"
	case SameSiteNone:
		return "None"
	default:
		return "Lax"
	}
}

// ParseSameSite convert (case-insensitive) attribute value into SameSite.
func ParseSameSite(value string) (SameSite, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lax":
		return SameSiteLax, true
	case "strict":
		return SameSiteStrict, true
	case "none":
		return SameSiteNone, true
	}

	return SameSiteLax, false
}

//-------------------------------------------------------------

// Cookie is a single HTTP cookie with its attributes.
type Cookie struct {
	Name  string
	Value string
	Path  string
	// Domain is not serialized when empty.
	Domain string
	// MaxAge in seconds; negative value mean no Max-Age attribute (session cookie).
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
}

// New create cookie with defaults: Path=/, HttpOnly, SameSite=Lax, no Max-Age.
func New(name, value string) *Cookie {
	return &Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: SameSiteLax,
	}
}

func (c *Cookie) WithPath(path string) *Cookie {
	c.Path = path

	return c
}

func (c *Cookie) WithDomain(domain string) *Cookie {
	c.Domain = domain

	return c
}

func (c *Cookie) WithMaxAge(maxAge int) *Cookie {
	c.MaxAge = maxAge

	return c
}

func (c *Cookie) WithHTTPOnly(httpOnly bool) *Cookie {
	c.HTTPOnly = httpOnly

	return c
}

func (c *Cookie) WithSecure(secure bool) *Cookie {
	c.Secure = secure

	return c
}

func (c *Cookie) WithSameSite(sameSite SameSite) *Cookie {
	c.SameSite = sameSite

	return c
}

// Expired return copy of cookie that instruct client to remove it.
func (c *Cookie) Expired() *Cookie {
	n := *c
	n.Value = ""
	n.MaxAge = 0

	return &n
}

// String serialize cookie into Set-Cookie header value.
func (c *Cookie) String() string {
	var b strings.Builder

	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	path := c.Path
	if path == "" {
		path = "/"
	}

	b.WriteString("; Path=")
	b.WriteString(path)

	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}

	if c.MaxAge >= 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	}

	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}

	if c.Secure {
		b.WriteString("; Secure")
	}

	b.WriteString("; SameSite=")
	b.WriteString(c.SameSite.String())

	return b.String()
}

func (c *Cookie) MarshalZerologObject(event *zerolog.Event) {
	event.Str("name", c.Name).
		Str("path", c.Path).
		Int("max_age", c.MaxAge).
		Bool("secure", c.Secure)
}

//-------------------------------------------------------------

// Parse decode Set-Cookie style string. Attribute names are case-insensitive;
// unknown attributes and invalid Max-Age/SameSite values are ignored.
// Missing attributes keep defaults from New.
func Parse(header string) (*Cookie, error) {
	parts := strings.Split(header, ";")

	name, value, _ := strings.Cut(parts[0], "=")

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, aerr.ApplyFor(ErrInvalidCookie, aerr.New("missing cookie name")).WithMeta("cookie", header)
	}

	cookie := New(name, strings.TrimSpace(value))

	for _, attr := range parts[1:] {
		key, val, _ := strings.Cut(attr, "=")
		val = strings.TrimSpace(val)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "path":
			if val != "" {
				cookie.Path = val
			}
		case "domain":
			cookie.Domain = val
		case "max-age":
			if maxAge, err := strconv.Atoi(val); err == nil {
				cookie.MaxAge = maxAge
			}
		case "httponly":
			cookie.HTTPOnly = true
		case "secure":
			cookie.Secure = true
		case "samesite":
			if ss, ok := ParseSameSite(val); ok {
				cookie.SameSite = ss
			}
		}
	}

	return cookie, nil
}

// ParseHeader decode value of Cookie request header (`a=1; b=2`). Fragments
// without name are skipped; later fragment win for the same name.
func ParseHeader(header string) map[string]*Cookie {
	cookies := make(map[string]*Cookie)

	for fragment := range strings.SplitSeq(header, ";") {
		if !strings.Contains(fragment, "=") {
			continue
		}

		if c, err := Parse(fragment); err == nil {
			cookies[c.Name] = c
		}
	}

	return cookies
}
