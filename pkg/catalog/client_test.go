package catalog

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/transport"
)

func TestClientRefreshLogsOutcome(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	fetcher := &fakeFetcher{parts: map[string][]byte{}}
	client := NewClient("test", store, fetcher, []transport.Origin{{URL: "http://example"}}, log)

	res, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Contains(t, buf.String(), "refresh complete")
	assert.Contains(t, buf.String(), "\"publisher\":\"test\"")
}

func TestClientRefreshLogsFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	fetcher := &fakeFetcher{err: assert.AnError}
	client := NewClient("test", store, fetcher, []transport.Origin{{URL: "http://example"}}, log)

	_, err = client.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "refresh failed")
}

func TestNewClientDefaultsLogger(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	client := NewClient("test", store, &fakeFetcher{}, nil, nil)
	assert.NotNil(t, client.log)
}
