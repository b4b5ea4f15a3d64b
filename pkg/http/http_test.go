package http

import (
	"context"
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

type pingRequest struct {
	ID    string `param:"id" json:"id" validate:"required,max=8"`
	Limit *int   `query:"limit" json:"limit" default:"5" validate:"omitempty,gte=1"`
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping/:id", func(c echo.Context) error {
		var req pingRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		if req.ID == "missing" {
			return AppErrorResponse(c, NotFoundErrorf("no %s", req.ID))
		}
		if req.ID == "boom" {
			panic("boom")
		}
		return SuccessResponse(c, map[string]interface{}{"id": req.ID, "limit": *req.Limit})
	})
}

func serve(t *testing.T, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	s := NewServer([]Handler{pingHandler{}})
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestServerAppliesDefaultsAndValidation(t *testing.T) {
	rec, body := serve(t, "/ping/abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"id": "abc", "limit": float64(5)}, body.Data)

	rec, body = serve(t, "/ping/waytoolongid")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body.Data.([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "id", errs[0].(map[string]interface{})["field"])
	assert.Equal(t, "ERR_MAX", errs[0].(map[string]interface{})["code"])
}

func TestServerMapsAppErrors(t *testing.T) {
	rec, body := serve(t, "/ping/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestServerRecoversPanics(t *testing.T) {
	rec, _ := serve(t, "/ping/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAppErrorResponseFallsBackTo500(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
			assert.Equal(t, "u1", r.URL.Query().Get("learner"))
			_, _ = w.Write([]byte(`{"name":"u1"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("down"))
		}
	}))
	defer srv.Close()

	c := NewClient()
	var out struct {
		Name string `json:"name"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL + "/ok",
		Headers:     map[string]string{"Authorization": "Bearer t"},
		QueryParams: map[string][]string{"learner": {"u1"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "u1", out.Name)

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/down"}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.True(t, se.Temporary())
	assert.True(t, strings.Contains(se.Body, "down"))
}
