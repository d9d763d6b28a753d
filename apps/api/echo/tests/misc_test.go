package tests

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/todoapp/apps/api/echo"
)

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Todo API!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func Test_misc(t *testing.T) {
	tests := []httpTest{
		{
			name: "root", path: "/api/v1", wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.StatusResponse{Status: "Success", Message: "This is the root endpoint."}),
		},
		{
			name: "root with trailing slash", path: "/api/v1/", wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.StatusResponse{Status: "Success", Message: "This is the root endpoint."}),
		},
		{name: "schema version", path: "/api/v1/schema", wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.SchemaResponse{Version: schemaVersion})},
		{name: "unknown route", path: "/api/v2", wantCode: http.StatusNotFound, wantData: errorBody("Not Found")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}
}

func Test_requestID(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/api/v1")
	req.Header.Set(echo.HeaderXRequestID, "my-request")
	app.ServeHTTP(rec, req)
	assert.Equal(t, "my-request", rec.Header().Get(echo.HeaderXRequestID))

	req1, rec1 := newRequest(http.MethodGet, "/api/v1")
	app.ServeHTTP(rec1, req1)
	req2, rec2 := newRequest(http.MethodGet, "/api/v1")
	app.ServeHTTP(rec2, req2)
	assert.NotEqual(t, rec1.Header().Get(echo.HeaderXRequestID), rec2.Header().Get(echo.HeaderXRequestID))
}
