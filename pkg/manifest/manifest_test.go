package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/action"
)

func parseAll(t *testing.T, lines ...string) Manifest {
	t.Helper()
	var actions []action.Action
	for _, l := range lines {
		a, err := action.Parse(l)
		require.NoError(t, err)
		actions = append(actions, a)
	}
	return New(actions)
}

func TestDiffAddedRemovedChanged(t *testing.T) {
	old := parseAll(t,
		`file mode=0555 owner=root group=bin path=bin/a`,
		`file mode=0555 owner=root group=bin path=bin/b`,
	)
	newer := parseAll(t,
		`file mode=0755 owner=root group=bin path=bin/a`, // changed
		`file mode=0555 owner=root group=bin path=bin/c`, // added
	)
	d := old.Diff(newer)
	assert.Len(t, d.Added, 1)
	assert.Equal(t, "bin/c", d.Added[0].KeyValue())
	assert.Len(t, d.Removed, 1)
	assert.Equal(t, "bin/b", d.Removed[0].KeyValue())
	assert.Len(t, d.Changed, 1)
	assert.Equal(t, "bin/a", d.Changed[0].New.KeyValue())
}

func TestDiffIdempotentOnIdenticalManifests(t *testing.T) {
	m := parseAll(t, `file mode=0555 owner=root group=bin path=bin/a`)
	d := m.Diff(m)
	assert.True(t, d.Empty())
}

func TestSelectVariantsElidesUnselected(t *testing.T) {
	m := parseAll(t,
		`file mode=0555 owner=root group=bin path=bin/sparc variant.arch=sparc`,
		`file mode=0555 owner=root group=bin path=bin/i386 variant.arch=i386`,
		`file mode=0555 owner=root group=bin path=bin/common`,
	)
	selected := m.SelectVariants(map[string]string{"variant.arch": "sparc"})
	var paths []string
	for _, a := range selected.Actions {
		paths = append(paths, a.KeyValue())
	}
	assert.ElementsMatch(t, []string{"bin/sparc", "bin/common"}, paths)
}

func TestCheckUniqueDetectsDuplicate(t *testing.T) {
	m := parseAll(t,
		`file mode=0555 owner=root group=bin path=bin/a`,
		`file mode=0644 owner=root group=bin path=bin/a`,
	)
	_, dup := m.CheckUnique()
	assert.True(t, dup)
}

func TestSortedOrdersByOrdinalityThenKey(t *testing.T) {
	m := parseAll(t,
		`file mode=0555 owner=root group=bin path=bin/b`,
		`dir mode=0755 owner=root group=bin path=bin`,
		`file mode=0555 owner=root group=bin path=bin/a`,
		`depend fmri=pkg:/x@1.0 type=require`,
	)
	sorted := m.Sorted()
	var kinds []action.Kind
	for _, a := range sorted {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []action.Kind{action.Depend, action.Dir, action.File, action.File}, kinds)
	assert.Equal(t, "bin/a", sorted[2].KeyValue())
	assert.Equal(t, "bin/b", sorted[3].KeyValue())
}
