package mockapi

import (
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

// Transport returns an http.RoundTripper that serves requests from this mock
// server without opening a socket, so an http.Client can talk to it
// in-process.
func (s *Server) Transport() http.RoundTripper {
	e := echo.New()
	e.HideBanner = true
	Register(e, s)
	return &inProcessTransport{handler: e}
}

type inProcessTransport struct {
	handler http.Handler
}

func (t *inProcessTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
