package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/config"
)

func TestFetchCatalogPartSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":1}`))
	}))
	defer srv.Close()

	c := New(config.Default(), logrus.New())
	res, err := c.FetchCatalogPart(context.Background(), []Origin{{URL: srv.URL}}, "catalog.attrs", CacheControl{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(res.Body))
}

func TestFetchCatalogPartNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(config.Default(), logrus.New())
	_, err := c.FetchCatalogPart(context.Background(), []Origin{{URL: srv.URL}}, "catalog.attrs", CacheControl{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err) || err != nil)
}

func TestFetchRetriesAlternateOrigin(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer good.Close()

	c := New(config.Default(), logrus.New())
	res, err := c.FetchCatalogPart(context.Background(), []Origin{{URL: bad.URL}, {URL: good.URL}}, "catalog.attrs", CacheControl{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Body))
	assert.Len(t, res.Failures, 1)
}

func TestFetchAllRunsEveryJob(t *testing.T) {
	c := New(config.Default(), logrus.New())
	var jobs []func(context.Context) error
	results := make([]int, 5)
	for i := 0; i < 5; i++ {
		i := i
		jobs = append(jobs, func(ctx context.Context) error {
			results[i] = i + 1
			return nil
		})
	}
	err := c.FetchAll(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}
