package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, map[string]int{"n": 1}) })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundErrorf("no %s", "thing")) })
	e.GET("/plain", func(c echo.Context) error { return AppErrorResponse(c, errors.New("hidden")) })
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var resp APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestServerRoutesAndEnvelope(t *testing.T) {
	s := NewServer([]Handler{routes{}, nil}, WithMetricsPath(""))

	rec, resp := do(t, s, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", resp.Message)

	rec, resp = do(t, s, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, rec.Body.String(), "no thing")

	rec, _ = do(t, s, http.MethodGet, "/plain")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hidden")

	rec, resp = do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, resp.Data)
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer([]Handler{routes{}}, WithMetricsPath(""))
	rec, resp := do(t, s, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer([]Handler{routes{}}, WithMetricsPath(""))
	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://example.test")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.test", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

type sampleRequest struct {
	Name  string `query:"name" json:"name" validate:"required,max=5"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

func bindSample(target string) (*sampleRequest, []ValidationError) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	req := &sampleRequest{}
	return req, ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequest(t *testing.T) {
	req, verr := bindSample("/?name=abc")
	require.Nil(t, verr)
	assert.Equal(t, 10, req.Limit)

	_, verr = bindSample("/?limit=99")
	require.Len(t, verr, 2)
	fields := []string{verr[0].Field, verr[1].Field}
	assert.ElementsMatch(t, []string{"name", "limit"}, fields)
	for _, v := range verr {
		if v.Field == "limit" {
			assert.Equal(t, "ERR_LTE", v.Code)
			assert.Equal(t, "50", v.Params["max"])
		}
	}

	_, verr = bindSample("/?name=toolongname")
	require.Len(t, verr, 1)
	assert.Equal(t, "name must be at most 5 characters", verr[0].Message)

	_, verr = bindSample("/?name=a&limit=x")
	require.Len(t, verr, 1)
	assert.Equal(t, "ERR_BIND", verr[0].Code)
}

func TestClientSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"echo":"` + body["q"] + `"}`))
	}))
	defer srv.Close()

	var out map[string]string
	err := NewClient().SendAndParse(t.Context(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL,
		QueryParams: map[string][]string{"page": {"1"}},
		Body:        map[string]string{"q": "batman"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "batman", out["echo"])
}

func TestClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusTeapot)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(t.Context(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 418")
	assert.Less(t, len(err.Error()), 600)
}
