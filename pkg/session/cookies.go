package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"xscraper/pkg/models"
)

// rawCookie accepts sameSite of any JSON type so malformed exports still load
type rawCookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Expires float64 `json:"expires"`
	// Some exporters write expirationDate instead of expires
	ExpirationDate float64         `json:"expirationDate"`
	HTTPOnly       bool            `json:"httpOnly"`
	Secure         bool            `json:"secure"`
	SameSite       json.RawMessage `json:"sameSite"`
}

// ParseExport reads a browser cookie export. Both a bare array and an
// object with a "cookies" array are accepted.
func ParseExport(data []byte) ([]models.Cookie, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty export", ErrInvalid)
	}

	var raws []rawCookie
	if data[0] == '{' {
		var wrapped struct {
			Cookies []rawCookie `json:"cookies"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		raws = wrapped.Cookies
	} else if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cookies := make([]models.Cookie, 0, len(raws))
	for _, r := range raws {
		c := models.Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Expires:  r.Expires,
			HTTPOnly: r.HTTPOnly,
			Secure:   r.Secure,
		}
		if c.Expires == 0 {
			c.Expires = r.ExpirationDate
		}
		var ss string
		if err := json.Unmarshal(r.SameSite, &ss); err == nil {
			c.SameSite = ss
		}
		cookies = append(cookies, c)
	}
	return Normalize(cookies), nil
}

// NormalizeSameSite maps a sameSite value onto Strict, Lax or None.
// Extension exports write "no_restriction" for None. Anything else maps to ""
// and the attribute is dropped.
func NormalizeSameSite(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return "Strict"
	case "lax":
		return "Lax"
	case "none", "no_restriction":
		return "None"
	default:
		return ""
	}
}

// Normalize fixes sameSite values and drops cookies without a name
func Normalize(cookies []models.Cookie) []models.Cookie {
	out := make([]models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		c.SameSite = NormalizeSameSite(c.SameSite)
		out = append(out, c)
	}
	return out
}
