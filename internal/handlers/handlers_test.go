package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/session"
	"github.com/cjnewshub/apiserver/internal/storage"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

type fakeResolver struct {
	sessions map[string]session.Session
	err      error
}

func (f fakeResolver) Resolve(_ context.Context, token string) (session.Session, error) {
	if f.err != nil {
		return session.Session{}, f.err
	}
	s, ok := f.sessions[token]
	if !ok {
		return session.Session{}, session.ErrInvalidToken
	}
	return s, nil
}

type fakeUserLoader map[string]types.User

func (f fakeUserLoader) GetByID(_ context.Context, id string) (types.User, error) {
	u, ok := f[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

var testUsers = fakeUserLoader{
	"admin1": {ID: "admin1", Name: "Chief", Role: types.RoleAdmin, Status: types.UserStatusActive},
	"pub1":   {ID: "pub1", Name: "Pat", Role: types.RolePublisher, Status: types.UserStatusActive},
	"sub1":   {ID: "sub1", Name: "Sam", Role: types.RoleSubscriber, Status: types.UserStatusActive},
	"gone":   {ID: "gone", Name: "Blocked", Role: types.RoleSubscriber, Status: types.UserStatusBlocked},
}

func newTestAuthenticator() *Authenticator {
	sessions := map[string]session.Session{}
	for id := range testUsers {
		sessions[id+"-token"] = session.Session{ID: "s-" + id, UserID: id, Origin: "10.0.0.1"}
	}
	sessions["orphan-token"] = session.Session{ID: "s-orphan", UserID: "nobody"}
	return NewAuthenticator(fakeResolver{sessions: sessions}, testUsers)
}

func do(t *testing.T, h http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{services.ErrInvalidInput, http.StatusBadRequest, "invalid input"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{services.ErrProtectedIdentity, http.StatusForbidden, "account is protected"},
		{services.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound, "not found"},
		{storage.ErrNotFound, http.StatusNotFound, "not found"},
		{store.ErrAlreadyExists, http.StatusConflict, "already exists"},
		{errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err, "fallback")

		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, tt.msg, resp.Error)
	}
}

func TestClientOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5123"
	assert.Equal(t, "203.0.113.9", clientOrigin(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientOrigin(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientOrigin(req))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	page, limit, offset, err := parsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, maxLimit, limit)
	assert.Equal(t, 2*maxLimit, offset)

	req = httptest.NewRequest(http.MethodGet, "/?page=0", nil)
	_, _, _, err = parsePagination(req)
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	auth := newTestAuthenticator()
	var seen *types.User
	h := auth.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = actorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		actor  string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid", "Bearer pub1-token", http.StatusNoContent, "pub1"},
		{"wrong scheme", "Basic pub1-token", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"deleted user", "Bearer orphan-token", http.StatusUnauthorized, ""},
		{"blocked user", "Bearer gone-token", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.actor == "" {
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, tt.actor, seen.ID)
			}
		})
	}
}

func TestIdentifyStoreFailure(t *testing.T) {
	auth := NewAuthenticator(fakeResolver{err: errors.New("redis down")}, testUsers)
	h := auth.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := do(t, h, http.MethodGet, "/", "pub1-token", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireUser(t *testing.T) {
	auth := newTestAuthenticator()
	h := auth.Identify(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/", "", nil, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodGet, "/", "sub1-token", nil, "").Code)
}

type memGateway struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemGateway() *memGateway {
	return &memGateway{data: map[string][]byte{}}
}

func (g *memGateway) Load(_ context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (g *memGateway) Save(_ context.Context, key string, value []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = append([]byte(nil), value...)
	return nil
}

func (g *memGateway) Remove(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, key)
	return nil
}

func TestSettingsRoutes(t *testing.T) {
	router := chi.NewRouter()
	router.Use(newTestAuthenticator().Identify)
	router.Route("/settings", func(r chi.Router) {
		SettingsRouter(r, services.NewSettingsService(newMemGateway(), nil))
	})

	rec := do(t, router, http.MethodGet, "/settings/watermark", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mark types.WatermarkSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&mark))
	assert.Equal(t, "CJ NEWS HUB", mark.Text)

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/settings/email", "", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, http.MethodGet, "/settings/email", "pub1-token", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/settings/email", "admin1-token", nil, "").Code)

	update := types.SubscriptionSettings{ShowPaymentButton: true, PaymentLink: "https://pay.test", MonthlyPrice: "$3"}
	rec = do(t, router, http.MethodPut, "/settings/subscription", "pub1-token", jsonBody(t, update), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, router, http.MethodPut, "/settings/subscription", "admin1-token", jsonBody(t, update), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/settings/subscription", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sub types.SubscriptionSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sub))
	assert.Equal(t, update, sub)

	rec = do(t, router, http.MethodPut, "/settings/watermark", "admin1-token", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/settings/subscription", "admin1-token", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/settings/unknown", "admin1-token", nil, "").Code)
}

type memClippings struct {
	mu    sync.Mutex
	items map[string]types.Clipping
}

func (m *memClippings) ListByUser(_ context.Context, userID string) ([]types.Clipping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Clipping
	for _, c := range m.items {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memClippings) Get(_ context.Context, id string) (types.Clipping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return types.Clipping{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memClippings) Create(_ context.Context, c types.Clipping) (types.Clipping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c
	return c, nil
}

func (m *memClippings) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func TestClippingRoutes(t *testing.T) {
	router := chi.NewRouter()
	router.Use(newTestAuthenticator().Identify)
	router.Route("/clippings", func(r chi.Router) {
		ClippingRouter(r, services.NewClippingService(&memClippings{items: map[string]types.Clipping{}}, newMemGateway(), nil))
	})
	png := []byte("\x89PNG\r\n\x1a\nbody")

	rec := do(t, router, http.MethodPost, "/clippings", "", bytes.NewReader(png), "image/png")
	require.Equal(t, http.StatusCreated, rec.Code)
	var anon ClippingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&anon))
	assert.Empty(t, anon.UserID)
	assert.Equal(t, "/clippings/"+anon.ID+"/image", anon.ImageURL)

	rec = do(t, router, http.MethodGet, anon.ImageURL, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	body := jsonBody(t, ClippingRequest{Image: "data:image/png;base64,aGVsbG8="})
	rec = do(t, router, http.MethodPost, "/clippings", "sub1-token", body, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var owned ClippingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&owned))
	assert.Equal(t, "sub1", owned.UserID)

	assert.Equal(t, http.StatusForbidden, do(t, router, http.MethodGet, "/clippings/"+owned.ID, "pub1-token", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/clippings/"+owned.ID, "sub1-token", nil, "").Code)

	rec = do(t, router, http.MethodGet, "/clippings", "sub1-token", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ClippingListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/clippings", "", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/clippings", "", strings.NewReader(`{"image":"nope"}`), "application/json").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/clippings", "", strings.NewReader(`{"image":"data:text/plain;base64,aGk="}`), "application/json").Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/clippings/"+owned.ID, "sub1-token", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/clippings/"+owned.ID, "sub1-token", nil, "").Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, http.HandlerFunc(Healthz), http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
