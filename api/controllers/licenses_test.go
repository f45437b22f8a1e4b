package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLTIGER/pulse-architects-sub001/internal/licenses"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

type stubLicenseLister struct {
	params licenses.ListParams
	result *licenses.ListResult
}

func (s *stubLicenseLister) List(_ context.Context, params licenses.ListParams) (*licenses.ListResult, error) {
	s.params = params
	return s.result, nil
}

func TestLicenseListReturnsCallerLicenses(t *testing.T) {
	identity := buyer()
	svc := &stubLicenseLister{result: &licenses.ListResult{
		Items: []licenses.ListItem{{
			ID:            uuid.New(),
			LicenseKey:    "STD-ABCDEF12-12345678-LXYZ-Q1W2",
			Tier:          enums.LicenseTierStandard,
			IsActive:      true,
			Usable:        true,
			DownloadCount: 2,
		}},
		Cursor: "next",
	}}

	rec := httptest.NewRecorder()
	LicenseList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/licenses?limit=5&cursor=abc", "", identity, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, identity.UserID, svc.params.UserID)
	assert.Equal(t, 5, svc.params.Limit)
	assert.Equal(t, "abc", svc.params.Cursor)

	var body struct {
		Data licenses.ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "STD-ABCDEF12-12345678-LXYZ-Q1W2", body.Data.Items[0].LicenseKey)
	assert.Equal(t, "next", body.Data.Cursor)
}

func TestLicenseListRequiresIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	LicenseList(&stubLicenseLister{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/licenses", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLicenseListRejectsBadLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	LicenseList(&stubLicenseLister{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/licenses?limit=1000", "", buyer(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
