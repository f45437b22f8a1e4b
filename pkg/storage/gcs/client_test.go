package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenObjectStreamsMedia(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-plan")
	}))
	t.Cleanup(srv.Close)

	client := newClient(srv.Client(), "plans-bucket", srv.URL)
	obj, err := client.OpenObject(context.Background(), "plans/courtyard house.pdf")
	require.NoError(t, err)
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-plan", string(body))
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, int64(len("%PDF-plan")), obj.Size)
	assert.Equal(t, "/storage/v1/b/plans-bucket/o/plans%2Fcourtyard%20house.pdf", gotPath)
	assert.Equal(t, "alt=media", gotQuery)
}

func TestOpenObjectNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	client := newClient(srv.Client(), "plans-bucket", srv.URL)
	_, err := client.OpenObject(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestOpenObjectUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "caller lacks storage.objects.get")
	}))
	t.Cleanup(srv.Close)

	client := newClient(srv.Client(), "plans-bucket", srv.URL)
	_, err := client.OpenObject(context.Background(), "plan.pdf")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrObjectNotFound))
	assert.True(t, strings.Contains(err.Error(), "storage.objects.get"))
}

func TestOpenObjectRequiresName(t *testing.T) {
	client := newClient(http.DefaultClient, "b", "http://unused")
	_, err := client.OpenObject(context.Background(), " / ")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("maxResults") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, newClient(srv.Client(), "plans-bucket", srv.URL).Ping(context.Background()))
	assert.Error(t, newClient(srv.Client(), "", srv.URL).Ping(context.Background()))
}
