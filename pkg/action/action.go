// Package action implements the atomic delivery unit of a package: a
// tagged action kind carrying a key attribute and a bag of attributes,
// with canonical serialization, ordering, and validation.
package action

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind names one of the closed set of action kinds a manifest may carry.
type Kind string

const (
	Set       Kind = "set"
	Depend    Kind = "depend"
	Group     Kind = "group"
	User      Kind = "user"
	Dir       Kind = "dir"
	File      Kind = "file"
	Hardlink  Kind = "hardlink"
	Link      Kind = "link"
	Driver    Kind = "driver"
	License   Kind = "license"
	Legacy    Kind = "legacy"
	Signature Kind = "signature"
)

// ordinality fixes install ordering: lower sorts first. Values are spaced
// by ten so a future re-architecture can interleave a new kind without
// renumbering everything else.
var ordinality = map[Kind]int{
	Set:       0,
	Depend:    10,
	Group:     20,
	User:      30,
	Dir:       40,
	File:      50,
	Hardlink:  60,
	Link:      70,
	Driver:    80,
	License:   90,
	Legacy:    100,
	Signature: 110,
}

// Ordinality returns the install-ordering value for kind. Unknown kinds
// sort after every known one.
func Ordinality(kind Kind) int {
	if v, ok := ordinality[kind]; ok {
		return v
	}
	return len(ordinality) * 10
}

// defaultKeyAttr names the attribute that, combined with Kind, uniquely
// identifies an Action within a manifest.
var defaultKeyAttr = map[Kind]string{
	Set:       "name",
	Depend:    "fmri",
	Group:     "groupname",
	User:      "username",
	Dir:       "path",
	File:      "path",
	Hardlink:  "path",
	Link:      "path",
	Driver:    "name",
	License:   "license",
	Legacy:    "pkg",
	Signature: "path",
}

// DefaultKeyAttrName returns the conventional key attribute name for kind.
func DefaultKeyAttrName(kind Kind) string {
	return defaultKeyAttr[kind]
}

// Attrs holds an action's attribute bag. Every value is stored as a
// (possibly single-element) list so that multi-valued attributes (e.g.
// multiple `fmri=` entries on a require-any depend) round-trip without a
// separate representation.
type Attrs map[string][]string

// Get returns the first value of key, or "" if absent.
func (a Attrs) Get(key string) string {
	if v := a[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// All returns every value of key, in insertion order.
func (a Attrs) All(key string) []string {
	return a[key]
}

// Set replaces key's value list with a single value.
func (a Attrs) Set(key, value string) {
	a[key] = []string{value}
}

// Add appends value to key's value list, used for repeatable attributes.
func (a Attrs) Add(key, value string) {
	a[key] = append(a[key], value)
}

// Clone returns a deep copy.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Equal reports whether two Attrs bags hold identical keys and values
// (value lists compared in order).
func (a Attrs) Equal(o Attrs) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || len(ov) != len(v) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

// Action is the atomic unit delivered by a package.
type Action struct {
	Kind        Kind
	KeyAttr     string // attribute name serving as this action's key
	Attrs       Attrs
	Hash        string            // deprecated positional payload hash
	PayloadHash map[string]string // algorithm name -> hex digest, e.g. "sha256" -> "..."
}

// New constructs an Action with the conventional key attribute name for
// kind and an initialized, empty Attrs bag.
func New(kind Kind) Action {
	return Action{
		Kind:    kind,
		KeyAttr: DefaultKeyAttrName(kind),
		Attrs:   Attrs{},
	}
}

// KeyValue returns the value of the action's key attribute, the identity
// used for manifest uniqueness and diffing.
func (a Action) KeyValue() string {
	return a.Attrs.Get(a.KeyAttr)
}

// Variants returns the sorted `variant.*` attribute pairs carried by the
// action, used both for uniqueness (variant-tuple component of the §3
// invariant) and for image-variant filtering.
func (a Action) Variants() []string {
	return prefixedSorted(a.Attrs, "variant.")
}

// Facets returns the sorted `facet.*` attribute pairs.
func (a Action) Facets() []string {
	return prefixedSorted(a.Attrs, "facet.")
}

func prefixedSorted(attrs Attrs, prefix string) []string {
	var keys []string
	for k := range attrs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range attrs[k] {
			out = append(out, k+"="+v)
		}
	}
	return out
}

// Equal reports deep equality of kind, key attribute name, attributes,
// and hashes.
func (a Action) Equal(o Action) bool {
	if a.Kind != o.Kind || a.KeyAttr != o.KeyAttr || a.Hash != o.Hash {
		return false
	}
	if !a.Attrs.Equal(o.Attrs) {
		return false
	}
	if len(a.PayloadHash) != len(o.PayloadHash) {
		return false
	}
	for k, v := range a.PayloadHash {
		if o.PayloadHash[k] != v {
			return false
		}
	}
	return true
}

// Less implements the manifest install-ordering relation: by ordinality,
// then by key attribute value.
func (a Action) Less(o Action) bool {
	oa, ob := Ordinality(a.Kind), Ordinality(o.Kind)
	if oa != ob {
		return oa < ob
	}
	return a.KeyValue() < o.KeyValue()
}

func needsQuoting(s string) bool {
	return strings.ContainsAny(s, " \t\"")
}

func quoteIfNeeded(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return strconv.Quote(s)
}

// String renders the canonical textual form: `<kind> [hash] attr=value ...`
// with attributes sorted by key and list-valued attributes repeating the
// key once per value, matching the pkg5 generic-action serialization this
// package is grounded on. Re-parsing the result with Parse yields an equal
// Action (round-trip identity).
func (a Action) String() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if a.Hash != "" {
		b.WriteByte(' ')
		b.WriteString(a.Hash)
	}

	keys := make([]string, 0, len(a.Attrs))
	for k := range a.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range a.Attrs[k] {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(quoteIfNeeded(v))
		}
	}

	if len(a.PayloadHash) > 0 {
		algos := make([]string, 0, len(a.PayloadHash))
		for algo := range a.PayloadHash {
			algos = append(algos, algo)
		}
		sort.Strings(algos)
		for _, algo := range algos {
			b.WriteByte(' ')
			b.WriteString("pkg.hash." + algo)
			b.WriteByte('=')
			b.WriteString(a.PayloadHash[algo])
		}
	}

	return b.String()
}

// Digest returns a stable hex digest of the action's canonical string,
// suitable for content-addressed dedup of identical action lines (e.g.
// the search index's per-action postings).
func (a Action) Digest() string {
	sum := sha256.Sum256([]byte(a.String()))
	return hex.EncodeToString(sum[:])
}

// Parse parses a single canonical action line: `<kind> [hash] attr=value ...`.
func Parse(line string) (Action, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return Action{}, err
	}
	if len(tokens) == 0 {
		return Action{}, fmt.Errorf("action: empty line")
	}

	kind := Kind(tokens[0])
	a := New(kind)
	rest := tokens[1:]

	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		a.Hash = rest[0]
		rest = rest[1:]
	}

	for _, tok := range rest {
		idx := strings.IndexByte(tok, '=')
		if idx < 0 {
			return Action{}, fmt.Errorf("action: malformed attribute token %q", tok)
		}
		key, value := tok[:idx], tok[idx+1:]
		if strings.HasPrefix(key, "pkg.hash.") {
			if a.PayloadHash == nil {
				a.PayloadHash = map[string]string{}
			}
			a.PayloadHash[strings.TrimPrefix(key, "pkg.hash.")] = value
			continue
		}
		a.Attrs.Add(key, value)
	}

	return a, nil
}

// tokenize splits a canonical action line on whitespace, honoring
// double-quoted values (which may themselves contain escaped quotes) so
// that attribute values with embedded spaces round-trip.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	i := 0
	runes := []rune(line)
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '\\' && inQuote && i+1 < len(runes):
			cur.WriteRune(r)
			i++
			cur.WriteRune(runes[i])
		case (r == ' ' || r == '\t') && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
		i++
	}
	if inQuote {
		return nil, fmt.Errorf("action: unterminated quote in %q", line)
	}
	flush()

	for i, tok := range tokens {
		if idx := strings.IndexByte(tok, '='); idx >= 0 {
			val := tok[idx+1:]
			if strings.HasPrefix(val, `"`) {
				unq, err := strconv.Unquote(val)
				if err != nil {
					return nil, fmt.Errorf("action: bad quoted value %q: %w", val, err)
				}
				tokens[i] = tok[:idx+1] + unq
			}
		}
	}
	return tokens, nil
}
