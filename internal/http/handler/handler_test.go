package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/sifan077/curto/docs"
	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/repository"
	"github.com/sifan077/curto/internal/app/service"
)

type failingStore struct{ repository.LinkStore }

func (failingStore) ListAll(context.Context) ([]model.Link, error) {
	return nil, errors.New("connection reset")
}

func newTestApp(t *testing.T, store repository.LinkStore) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	NewSystemHandler(SystemDeps{Registry: prometheus.NewRegistry(), Title: "curto"}).Register(app)
	NewLinkHandler(LinkDeps{
		LinkService: service.NewLinkService(service.Dependencies{Store: store}),
	}).Register(app)
	app.Use(RouteNotFound)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postCreate(t *testing.T, app *fiber.App, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return do(t, app, req)
}

func TestCreateLinkWithCustomID(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := postCreate(t, app, `{"targetUrl":"https://crates.io/","customId":"crates"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	var link model.Link
	require.NoError(t, json.Unmarshal([]byte(body), &link))
	assert.Equal(t, "crates", link.ID)
	assert.Equal(t, "https://crates.io/", link.TargetURL)
	assert.Zero(t, link.CountRedirects)

	resp, body = postCreate(t, app, `{"targetUrl":"https://crates.io/","customId":"crates"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"message":"The provided custom link ID is already in use: crates"}`, body)
}

func TestCreateLinkGeneratesID(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := postCreate(t, app, `{"targetUrl":"https://github.com/"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	var link model.Link
	require.NoError(t, json.Unmarshal([]byte(body), &link))
	assert.Len(t, link.ID, 5)
}

func TestCreateLinkRejectsBadInput(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	cases := []struct {
		name   string
		body   string
		status int
		prefix string
	}{
		{"invalid json", `{"targetUrl":`, fiber.StatusBadRequest, "Invalid request: "},
		{"missing target", `{}`, fiber.StatusBadRequest, "Invalid request: missing field `targetUrl`"},
		{"null target", `{"targetUrl":null}`, fiber.StatusBadRequest, "Invalid request: missing field `targetUrl`"},
		{"empty target", `{"targetUrl":""}`, fiber.StatusUnprocessableEntity, "Malformed URL: relative URL without a base"},
		{"relative url", `{"targetUrl":"crates.io"}`, fiber.StatusUnprocessableEntity, "Malformed URL: "},
		{"no host", `{"targetUrl":"mailto:someone"}`, fiber.StatusUnprocessableEntity, "Only URLs with valid hosts are accepted"},
		{"same host", `{"targetUrl":"http://example.com/loop"}`, fiber.StatusUnprocessableEntity, "URLs with the same host as this service are forbidden"},
		{"reserved id", `{"targetUrl":"https://crates.io/","customId":"links"}`, fiber.StatusUnprocessableEntity, "The provided custom link ID is not valid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postCreate(t, app, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &errResp))
			assert.True(t, strings.HasPrefix(errResp.Message, tc.prefix), errResp.Message)
		})
	}
}

func TestGetAndListLinks(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/links", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	postCreate(t, app, `{"targetUrl":"https://crates.io/","customId":"crates"}`)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/links/crates", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"targetUrl":"https://crates.io/"`)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/links", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var links []model.Link
	require.NoError(t, json.Unmarshal([]byte(body), &links))
	require.Len(t, links, 1)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/links/nope1", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"A link with the provided ID 'nope1' could not be found"}`, body)
}

func TestRedirectSendsTemporaryRedirect(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())
	postCreate(t, app, `{"targetUrl":"https://github.com/?page=1","customId":"gh"}`)

	req := httptest.NewRequest(http.MethodGet, "/gh?test=value", nil)
	req.Header.Set("Referer", "https://news.example/")
	resp, body := do(t, app, req)

	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://github.com/?test=value", resp.Header.Get(fiber.HeaderLocation))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderCacheControl))
	assert.Empty(t, body)
	assert.EqualValues(t, 0, resp.ContentLength)

	_, body = do(t, app, httptest.NewRequest(http.MethodGet, "/links/gh", nil))
	assert.Contains(t, body, `"countRedirects":1`)
}

func TestRedirectUnknownID(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/zzzzz", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"A link with the provided ID 'zzzzz' could not be found"}`, body)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	app := newTestApp(t, failingStore{LinkStore: repository.NewMemoryStore()})

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/links", nil))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Something went wrong"}`, body)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/a/b/c", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Route not found"}`, body)
}

func TestSystemEndpoints(t *testing.T) {
	app := newTestApp(t, repository.NewMemoryStore())

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.Contains(t, body, "swagger-ui")

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/docs/api.json", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, StatusOf(service.KindLinkNotFound))
	assert.Equal(t, fiber.StatusUnprocessableEntity, StatusOf(service.KindURLWithoutHost))
	assert.Equal(t, fiber.StatusInternalServerError, StatusOf(service.KindInternal))
}
