package maintainers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_HappyPath(t *testing.T) {
	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects":[{"name":"bash","access_users":{"owner":["alice"]}}]}`))
	}))
	defer adminSrv.Close()

	rosterSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bash":["alice","bob"]}`))
	}))
	defer rosterSrv.Close()

	c := New(adminSrv.URL, rosterSrv.URL, time.Second)
	admins, rosters, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", admins["bash"])
	assert.Equal(t, []string{"alice", "bob"}, rosters["bash"])
}

func TestFetch_SkipsMalformedEntry(t *testing.T) {
	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects":[{"name":"","access_users":{"owner":[]}},{"name":"kernel","access_users":{"owner":["carol"]}}]}`))
	}))
	defer adminSrv.Close()

	rosterSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer rosterSrv.Close()

	c := New(adminSrv.URL, rosterSrv.URL, time.Second)
	admins, _, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "carol", admins["kernel"])
	_, ok := admins[""]
	assert.False(t, ok)
}

func TestFetch_AdminFailureSurfaces(t *testing.T) {
	adminSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer adminSrv.Close()

	rosterSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer rosterSrv.Close()

	c := New(adminSrv.URL, rosterSrv.URL, time.Second)
	_, _, err := c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetch_TimeoutSurfaces(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer slow.Close()

	c := New(slow.URL, slow.URL, 5*time.Millisecond)
	_, _, err := c.Fetch(context.Background())
	assert.Error(t, err)
}
