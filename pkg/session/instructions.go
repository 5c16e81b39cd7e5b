package session

import (
	"fmt"
	"io"
	"strings"
)

// WriteExportGuide prints how to produce a cookie export for session import
func WriteExportGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"SESSION EXPORT GUIDE",
		rule,
		"",
		"1. Log in to https://x.com in a desktop browser.",
		"2. Export the cookies for x.com as JSON with a cookie export extension",
		"   (an array of {name, value, domain, path, expires, httpOnly, secure, sameSite}).",
		"3. Run: xscraper session import cookies.json",
		"",
		"The export must contain at least auth_token and ct0.",
		"Alternatively set " + EnvAuthToken + " and " + EnvCSRFToken + ".",
		"",
		"These cookies grant full access to the account. Use a secondary account",
		"and prefer the keyring or encrypted backend.",
		rule,
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

// RequiredCookies are the cookie names an authenticated session needs
var RequiredCookies = []string{"auth_token", "ct0"}

// Missing returns the required cookie names absent from a
func Missing(a *Artifact) []string {
	have := make(map[string]bool, len(a.Cookies))
	for _, c := range a.Cookies {
		have[c.Name] = true
	}
	var missing []string
	for _, name := range RequiredCookies {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
