package imagestate

import (
	"fmt"
	"strings"
)

// LinkedImageKind is the closed set of linked-image kinds §4.3 names.
type LinkedImageKind string

const (
	KindSystem LinkedImageKind = "system"
	KindZone   LinkedImageKind = "zone"
)

// LinkedImageName is "{kind}:{name}" per §4.3. name is opaque within the
// kind.
type LinkedImageName struct {
	Kind LinkedImageKind
	Name string
}

// ParseLinkedImageName parses "{kind}:{name}", rejecting anything else
// as malformed (the source's lin_malformed error).
func ParseLinkedImageName(s string) (LinkedImageName, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return LinkedImageName{}, fmt.Errorf("imagestate: lin_malformed: %q", s)
	}
	kind := LinkedImageKind(parts[0])
	if kind != KindSystem && kind != KindZone {
		return LinkedImageName{}, fmt.Errorf("imagestate: lin_malformed: unknown kind %q in %q", parts[0], s)
	}
	return LinkedImageName{Kind: kind, Name: parts[1]}, nil
}

func (l LinkedImageName) String() string {
	return string(l.Kind) + ":" + l.Name
}

// ChildLink is the metadata a parent image stores about one attached
// child: its linked-image name, filesystem path, and attach options
// that must be remembered for later sync/detach operations.
type ChildLink struct {
	Name            LinkedImageName
	Path            string
	MDOnly          bool
	RefreshCatalogs bool
	RejectList      []string
}

// ParentLink is the metadata a child image stores about its parent.
type ParentLink struct {
	Path string
}
