package pod

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	markerCSRF          = []byte("csrf-token")
	markerAuthenticity  = []byte("authenticity_token")
	markerPasswordField = []byte("user[password]")
)

// extractToken returns the CSRF token of an HTML page, taken from the
// csrf-token meta tag or, failing that, the authenticity_token form field.
func extractToken(body []byte) string {
	if !bytes.Contains(body, markerCSRF) && !bytes.Contains(body, markerAuthenticity) {
		return ""
	}

	var fromInput string
	var fromMeta string

	scanTags(body, func(t html.Token) bool {
		switch t.DataAtom {
		case atom.Meta:
			if attr(t, "name") == "csrf-token" {
				fromMeta = attr(t, "content")
			}
		case atom.Input:
			if fromInput == "" && attr(t, "name") == "authenticity_token" {
				fromInput = attr(t, "value")
			}
		}
		return fromMeta == ""
	})

	if fromMeta != "" {
		return fromMeta
	}
	return fromInput
}

// hasSignInForm reports whether body contains the password field of the
// sign-in form, which the pod renders again after rejected credentials.
func hasSignInForm(body []byte) bool {
	if !bytes.Contains(body, markerPasswordField) {
		return false
	}

	found := false
	scanTags(body, func(t html.Token) bool {
		if t.DataAtom == atom.Input && attr(t, "name") == "user[password]" {
			found = true
		}
		return !found
	})
	return found
}

// scanTags calls fn for every start tag until fn returns false.
func scanTags(body []byte, fn func(html.Token) bool) {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			if !fn(z.Token()) {
				return
			}
		}
	}
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
