package resolve

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

func TestResolverResolveBasicInstall(t *testing.T) {
	examplePkg := mustFMRI(t, "pkg://test/example_pkg@1.0,5.11-0")
	catalog := fakeCatalog{
		"example_pkg": {{FMRI: examplePkg, Manifest: manifest.New(nil), PublisherRank: 0}},
	}

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	r := NewResolver(log)
	state := imagestate.New("/")
	req := Request{Kind: OpInstall, Stems: []string{"example_pkg"}}

	result, err := r.Resolve(context.Background(), state, nil, req, catalog)
	require.NoError(t, err)
	assert.Contains(t, identifiers(result), candidateID(examplePkg))
	assert.Contains(t, buf.String(), "solved")
}

func TestResolverResolveReturnsBlameErrorOnUnsat(t *testing.T) {
	incorp10 := mustFMRI(t, "pkg://test/incorp_pkg@1.0,5.11-0")
	example10 := mustFMRI(t, "pkg://test/example_pkg@1.0,5.11-0")
	example11 := mustFMRI(t, "pkg://test/example_pkg@1.1,5.11-0")

	incorpManifest := manifest.New([]action.Action{dependAction(t, "incorporate", "example_pkg@1.0,5.11-0")})
	catalog := fakeCatalog{
		"incorp_pkg":  {{FMRI: incorp10, Manifest: incorpManifest}},
		"example_pkg": {{FMRI: example11}, {FMRI: example10}},
	}

	state := imagestate.New("/")
	state.Put("incorp_pkg", incorp10, imagestate.StateInstalled)
	state.Put("example_pkg", example10, imagestate.StateInstalled)

	r := NewResolver(nil)
	req := Request{Kind: OpUpdate, Stems: []string{"example_pkg"}}
	_, err := r.Resolve(context.Background(), state, nil, req, catalog)
	require.Error(t, err)

	var blame *BlameError
	require.ErrorAs(t, err, &blame)
	assert.Contains(t, blame.Packages, "incorp_pkg")
}
