package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/funnel"
	httpadapter "github.com/aretw0/funnel/pkg/adapters/http"
	"github.com/aretw0/funnel/pkg/adapters/memory"
	"github.com/aretw0/funnel/pkg/adapters/remote"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/aretw0/funnel/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mgr := session.NewManager(funnel.New(), memory.NewStore())
	srv := httptest.NewServer(httpadapter.NewHandler(mgr, httpadapter.WithSessionStore(memory.NewSessionStore())))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Contract(t *testing.T) {
	srv := newServer(t)
	ports.RunSessionStoreContract(t, remote.New(srv.URL+"/", remote.WithHTTPClient(srv.Client())))
}

func TestClient_ServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := remote.New(srv.URL)
	ctx := context.Background()

	_, err := c.Create(ctx, domain.UTM{})
	assert.ErrorContains(t, err, "no id")

	err = c.Update(ctx, "abc", domain.SessionUpdate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestClient_Unreachable(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()

	_, err := remote.New(url).Create(context.Background(), domain.UTM{})
	assert.Error(t, err)
}
