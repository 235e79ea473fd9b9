package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sortashort_server/config"
	"sortashort_server/middleware"
	"sortashort_server/models"
	"sortashort_server/services"
	"sortashort_server/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shell = `<html><head><title>{{META_TITLE}}</title><meta name="description" content="{{META_DESC}}"><meta property="og:image" content="{{META_IMAGE}}"></head><body></body></html>`

type stubObjects map[string]string

func (s stubObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := s[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

type stubIdentityProvider struct{}

func (stubIdentityProvider) SignUp(context.Context, *cognitoidentityprovider.SignUpInput, ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return nil, &smithy.GenericAPIError{Code: "UsernameExistsException", Message: "An account with the given email already exists.", Fault: smithy.FaultClient}
}

func (stubIdentityProvider) ConfirmSignUp(context.Context, *cognitoidentityprovider.ConfirmSignUpInput, ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (stubIdentityProvider) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	if in.AuthParameters["PASSWORD"] != "right" {
		return nil, &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "Incorrect username or password.", Fault: smithy.FaultClient}
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{AccessToken: aws.String("access-token")},
	}, nil
}

type testServer struct {
	handler http.Handler
	store   *storetest.MemoryStore
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(shell), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "8080", CORSOrigins: []string{"*"}},
		AWS:       config.AWSConfig{Region: "us-east-1"},
		Storage:   config.StorageConfig{Table: "t", Bucket: "b", CatalogKey: "shorts.json", PosterPrefix: "posters/"},
		Auth:      config.AuthConfig{CognitoClientID: "client"},
		Static:    config.StaticConfig{Root: root, ShellFile: "index.html"},
		Log:       config.LogConfig{Level: "info", Format: "json"},
		RateLimit: config.RateLimitConfig{Requests: 0},
	}
	for _, m := range mutate {
		m(cfg)
	}

	s := storetest.NewMemoryStore()
	objects := stubObjects{
		"shorts.json":    `{"42": {"titulo": "O Curta", "ano": 2021, "diretor": "Bia"}}`,
		"posters/42.jpg": "jpeg",
	}
	svcs := services.New(cfg, s, stubIdentityProvider{}, objects)
	return &testServer{handler: NewHandler(svcs, cfg), store: s}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestSEOFallback(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		target    string
		wantTitle string
	}{
		{"root", "/", "<title>Sort a Short</title>"},
		{"movie path", "/movie/42", "<title>O Curta | Sort a Short</title>"},
		{"movie query", "/?movie=42", "<title>O Curta | Sort a Short</title>"},
		{"short segment uses query", "/m/x?movie=42", "<title>O Curta | Sort a Short</title>"},
		{"unknown movie", "/movie/404", "<title>Sort a Short</title>"},
		{"shell is never served raw", "/index.html", "<title>Sort a Short</title>"},
		{"api lookalike", "/apiary", "<title>Sort a Short</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			assert.Contains(t, rec.Body.String(), tt.wantTitle)
		})
	}
}

func TestSEOFallback_CatalogMeta(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/movie/42", "")

	assert.Contains(t, rec.Body.String(), `content="2021 - Bia"`)
	assert.Contains(t, rec.Body.String(), `content="/posters/42.jpg"`)
}

func TestSEOFallback_MissingShell(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Static.Root = filepath.Join(t.TempDir(), "gone") })

	rec := ts.do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "index lost")
}

func TestPosters(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/posters/42.jpg", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))

	missing := ts.do(http.MethodGet, "/posters/7.jpg", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestStaticFiles(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/assets/app.js", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
}

func TestHistoryFlow(t *testing.T) {
	ts := newTestServer(t)

	for _, id := range []string{"1", "2", "3"} {
		rec := ts.do(http.MethodPost, "/api/history", `{"email": " A@Example.com ", "movie_id": `+id+`}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "saved", decode(t, rec)["status"])
	}

	rec := ts.do(http.MethodPost, "/api/history", `{"email": "a@example.com", "movie_id": "4"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["energy"])
	assert.Contains(t, body, "energy_ts")
	assert.Contains(t, body, "next_recharge_at")

	rec = ts.do(http.MethodGet, "/api/history?email=a@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode(t, rec)
	assert.Equal(t, []any{"1", "2", "3"}, snap["watched"])
	assert.Nil(t, snap["username"])
	assert.Equal(t, float64(0), snap["energy"])
}

func TestHistory_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"snapshot without email", http.MethodGet, "/api/history", ""},
		{"watch without movie", http.MethodPost, "/api/history", `{"email":"a@example.com"}`},
		{"malformed body", http.MethodPost, "/api/history", `{"email": "a@example.com", "movie_id": `},
		{"empty body", http.MethodPost, "/api/history", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["message"])
		})
	}
	assert.Equal(t, 0, ts.store.Calls("ConsumeEnergy"))
}

func TestRatingRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/rating", `{"email":"a@example.com","movie_id":"42","rating":4,"review":"bom"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"status": "ok", "new_average": float64(4)}, decode(t, rec))

	rec = ts.do(http.MethodPost, "/api/rating", `{"email":"b@example.com","movie_id":42,"rating":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["new_average"])

	rec = ts.do(http.MethodGet, "/api/rating?movie_id=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"average_rating": float64(2), "count": float64(2)}, decode(t, rec))

	rec = ts.do(http.MethodDelete, "/api/rating?email=b@example.com&movie_id=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "deleted", "new_average": float64(4)}, decode(t, rec))

	rec = ts.do(http.MethodPost, "/api/rating", `{"email":"a@example.com","movie_id":"42","rating":"five"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/rating", `{"email":"a@example.com","movie_id":"42"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRoutes_BobScenario(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/profile", `{"email":"a@example.com","username":"bob","avatar":2,"color":"#abc"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/profile", `{"email":"b@example.com","username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/username", `{"email":"b@example.com","username":"Bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/history?email=a@example.com", "")
	assert.Equal(t, "bob", decode(t, rec)["username"])

	rec = ts.do(http.MethodGet, "/api/users/search?q=bo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"username":"bob","email":"a@example.com","avatar":2,"color":"#abc"}]`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/users/search?q=b", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSocialRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.store.PutProfile(models.UserProfile{Email: "b@example.com", Username: "bea", FriendCode: "123456", Reviews: []models.Review{
		{MovieID: "42", Rating: 5, Timestamp: "2024-05-01T00:00:00.000000Z"},
	}})

	rec := ts.do(http.MethodPost, "/api/friends/add", `{"email":"a@example.com","friend_code":123456}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "following", decode(t, rec)["status"])

	rec = ts.do(http.MethodGet, "/api/social/feed?email=a@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []models.FeedEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "bea", feed[0].Username)

	rec = ts.do(http.MethodPost, "/api/social/follow", `{"email":"a@example.com","target_email":"b@example.com","action":"unfollow"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/social/follow", `{"email":"a@example.com","friend_code":"999999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/social/follow", `{"email":"a@example.com","target_email":"b@example.com","action":"poke"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/auth/signin", `{"email":"a@example.com","password":"right"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"token": "access-token", "email": "a@example.com"}, decode(t, rec))

	rec = ts.do(http.MethodPost, "/api/auth/signin", `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect username or password.", decode(t, rec)["message"])

	rec = ts.do(http.MethodPost, "/api/auth/signup", `{"email":"a@example.com","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/confirm", `{"email":"a@example.com","code":"123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode(t, rec)["message"])

	rec = ts.do(http.MethodPost, "/api/auth/confirm", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIUnknownAndWrongMethod(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		method, path string
		code         int
		allow        string
	}{
		{http.MethodGet, "/api/nope", http.StatusNotFound, ""},
		{http.MethodPost, "/api/rating/extra", http.StatusNotFound, ""},
		{http.MethodPut, "/api/rating", http.StatusMethodNotAllowed, "DELETE, GET, POST"},
		{http.MethodPatch, "/api/rating", http.StatusMethodNotAllowed, "DELETE, GET, POST"},
		{http.MethodPut, "/api/history", http.StatusMethodNotAllowed, "GET, POST"},
		{http.MethodGet, "/api/profile", http.StatusMethodNotAllowed, "POST"},
		{http.MethodDelete, "/api/social/feed", http.StatusMethodNotAllowed, "GET"},
		{http.MethodGet, "/api/auth/signin", http.StatusMethodNotAllowed, "POST"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := ts.do(tc.method, tc.path, `{}`)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.allow, rec.Header().Get("Allow"))
		})
	}
}

func TestDevRefill(t *testing.T) {
	disabled := newTestServer(t)
	rec := disabled.do(http.MethodPost, "/api/dev/refill", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	enabled := newTestServer(t, func(c *config.Config) { c.Dev.RefillEnabled = true })
	rec = enabled.do(http.MethodPost, "/api/dev/refill", `{"email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["energy"])
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/health", "")

	rec := ts.do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Minute}
	})

	for range 2 {
		rec := ts.do(http.MethodGet, "/api/rating?movie_id=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := ts.do(http.MethodGet, "/api/rating?movie_id=1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// pages are not limited
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/", "").Code)
}
