package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		`file mode=0555 owner=root group=bin path=bin/example_path`,
		`depend fmri=pkg:/example_pkg@1.0 type=require`,
		`set name=pkg.summary value="an example package"`,
		`dir mode=0755 owner=root group=bin path=bin`,
	}
	for _, c := range cases {
		a, err := Parse(c)
		require.NoError(t, err, c)
		again, err := Parse(a.String())
		require.NoError(t, err, c)
		assert.True(t, a.Equal(again), "round trip mismatch: %q -> %q", c, a.String())
	}
}

func TestParseMultipleFmri(t *testing.T) {
	a, err := Parse(`depend fmri=pkg:/a@1.0 fmri=pkg:/b@1.0 type=require-any`)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg:/a@1.0", "pkg:/b@1.0"}, a.Attrs.All("fmri"))
}

func TestSortedAttrsAreCanonical(t *testing.T) {
	a := New(File)
	a.Attrs.Set("path", "bin/x")
	a.Attrs.Set("mode", "0555")
	a.Attrs.Set("owner", "root")
	a.Attrs.Set("group", "bin")
	b := New(File)
	b.Attrs.Set("group", "bin")
	b.Attrs.Set("mode", "0555")
	b.Attrs.Set("path", "bin/x")
	b.Attrs.Set("owner", "root")
	assert.Equal(t, a.String(), b.String())
}

func TestFileValidateRequiresAttrs(t *testing.T) {
	a := New(File)
	a.Attrs.Set("path", "bin/x")
	err := a.Validate()
	assert.Error(t, err)

	a.Attrs.Set("mode", "0555")
	a.Attrs.Set("owner", "root")
	a.Attrs.Set("group", "bin")
	assert.NoError(t, a.Validate())
}

func TestOrdinalityOrdersInstallSequence(t *testing.T) {
	assert.Less(t, Ordinality(Set), Ordinality(Depend))
	assert.Less(t, Ordinality(Depend), Ordinality(Group))
	assert.Less(t, Ordinality(Group), Ordinality(User))
	assert.Less(t, Ordinality(User), Ordinality(Dir))
	assert.Less(t, Ordinality(Dir), Ordinality(File))
	assert.Less(t, Ordinality(File), Ordinality(Hardlink))
	assert.Less(t, Ordinality(Hardlink), Ordinality(Link))
	assert.Less(t, Ordinality(Link), Ordinality(Driver))
	assert.Less(t, Ordinality(Driver), Ordinality(License))
	assert.Less(t, Ordinality(License), Ordinality(Legacy))
	assert.Less(t, Ordinality(Legacy), Ordinality(Signature))
}

func TestPayloadHashRoundTrip(t *testing.T) {
	a := New(File)
	a.Attrs.Set("path", "bin/x")
	a.Attrs.Set("mode", "0555")
	a.Attrs.Set("owner", "root")
	a.Attrs.Set("group", "bin")
	a.PayloadHash = map[string]string{"sha256": "deadbeef"}
	again, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", again.PayloadHash["sha256"])
}
