package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
)

func newRequest(method, target, body string, identity *middleware.Identity, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := req.Context()
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	if identity != nil {
		ctx = middleware.WithIdentity(ctx, *identity)
	}
	return req.WithContext(ctx)
}

func buyer() *middleware.Identity {
	return &middleware.Identity{UserID: uuid.New(), Email: "buyer@example.com", Name: "Buyer"}
}
