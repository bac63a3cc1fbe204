package search

import (
	"strings"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
)

// Tokenize produces the token set for one action belonging to f, per
// §4.4's "~8 tokens per action on average: name, key, value, path
// components, hash, publisher, stem, each significant attribute value".
// Tokens are deduplicated but not otherwise normalized (case-sensitive
// terms match the literal casing Tokenize emits).
func Tokenize(f fmri.FMRI, a action.Action) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	add(string(a.Kind))
	add(a.KeyAttr)
	add(a.KeyValue())
	add(f.Publisher)
	add(f.Stem)
	add(a.Hash)
	for _, digest := range a.PayloadHash {
		add(digest)
	}

	if path := a.Attrs.Get("path"); path != "" {
		for _, part := range strings.Split(path, "/") {
			add(part)
		}
	}

	for key, values := range a.Attrs {
		if strings.HasPrefix(key, "variant.") || strings.HasPrefix(key, "facet.") {
			continue
		}
		for _, v := range values {
			add(v)
		}
	}

	return out
}
