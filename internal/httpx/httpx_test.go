package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenmarket/storefront/internal/auth"
)

// fakeSessions backs both SessionResolver and SessionManager in tests.
type fakeSessions struct {
	byToken map[string]auth.Identity
	created []auth.Identity
	deleted []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]auth.Identity{}}
}

func (f *fakeSessions) Get(_ context.Context, token string) (auth.Identity, error) {
	if id, ok := f.byToken[token]; ok {
		return id, nil
	}
	return auth.Identity{}, auth.ErrNotAuthenticated
}

func (f *fakeSessions) Create(_ context.Context, id auth.Identity) (string, error) {
	token := "tok-" + id.Email
	f.byToken[token] = id
	f.created = append(f.created, id)
	return token, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.byToken, token)
	f.deleted = append(f.deleted, token)
	return nil
}

func testRouter() (*chi.Mux, *fakeSessions) {
	sessions := newFakeSessions()
	r := chi.NewRouter()
	r.Use(ResolveIdentity(sessions))
	return r, sessions
}

// asIdentity attaches a session cookie resolving to the given identity.
func asIdentity(req *http.Request, sessions *fakeSessions, id auth.Identity) {
	token := "test-" + id.Email
	sessions.byToken[token] = id
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
}

func buyer() auth.Identity {
	return auth.Identity{UserID: 7, Name: "Ana", Email: "ana@example.com", Role: auth.RoleUser}
}

func admin() auth.Identity {
	return auth.Identity{UserID: 1, Name: "Root", Email: "root@example.com", Role: auth.RoleAdmin}
}
