package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

type itemPayload struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

type orderPayload struct {
	Weight float64       `json:"weight" validate:"gt=0"`
	Items  []itemPayload `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"weight":1,"items":[{"description":"a","quantity":1}],"extra":true}`))
	var dest orderPayload

	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest orderPayload

	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	require.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"weight":0,"items":[{"description":"","quantity":0}]}`))
	var dest orderPayload

	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be greater than 0", details["weight"])
	require.Equal(t, "is required", details["items[0].description"])
	require.Equal(t, "must be greater than 0", details["items[0].quantity"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, v)
}

func TestParseQueryList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=pending,%20processing&status=assigned&status=", nil)
	require.Equal(t, []string{"pending", "processing", "assigned"}, ParseQueryList(req, "status"))
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-01-02T03:04:05%2B07:00&to=yesterday", nil)
	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	require.Equal(t, 2026, from.Year())
	require.Equal(t, 20, from.Hour())

	_, err = ParseQueryTime(req, "to")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePathUUID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParsePathUUID(req, "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeStringKeepsRunesIntact(t *testing.T) {
	require.Equal(t, "Giao hà", SanitizeString("  Giao hàng nhanh ", 7))
	require.Nil(t, SanitizeOptional(ptr("   "), 10))
	require.Equal(t, "ok", *SanitizeOptional(ptr(" ok "), 10))
}

func ptr(s string) *string { return &s }
