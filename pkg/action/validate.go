package action

import "fmt"

// fileRequiredAttrs names the attributes spec.md §3 requires on file
// actions: "file actions require mode/owner/group/path".
var fileRequiredAttrs = []string{"mode", "owner", "group", "path"}

// Validate checks the attribute-presence invariants spec.md §3 states for
// the action's kind. Depend-type-specific validation (required type,
// conditional predicate, root-image placement) lives in package depend,
// which has the type table; this function only checks what is knowable
// from the action alone.
func (a Action) Validate() error {
	switch a.Kind {
	case File:
		for _, attr := range fileRequiredAttrs {
			if a.Attrs.Get(attr) == "" {
				return fmt.Errorf("action: file action missing required attribute %q", attr)
			}
		}
	case Dir:
		if a.Attrs.Get("path") == "" {
			return fmt.Errorf("action: dir action missing required attribute %q", "path")
		}
	case Link, Hardlink:
		if a.Attrs.Get("path") == "" {
			return fmt.Errorf("action: %s action missing required attribute %q", a.Kind, "path")
		}
		if a.Attrs.Get("target") == "" {
			return fmt.Errorf("action: %s action missing required attribute %q", a.Kind, "target")
		}
	}
	if a.KeyAttr != "" && a.Attrs.Get(a.KeyAttr) == "" {
		return fmt.Errorf("action: %s action missing key attribute %q", a.Kind, a.KeyAttr)
	}
	return nil
}
