package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestPipelineStopsAtFirstFailingGuard(t *testing.T) {
	var calls []string
	guard := func(name string, err error) Guard {
		return func(r *http.Request) (*http.Request, error) {
			calls = append(calls, name)
			return nil, err
		}
	}
	terminal := func(w http.ResponseWriter, r *http.Request) error {
		calls = append(calls, "terminal")
		return nil
	}

	h := Pipeline(func(w http.ResponseWriter, r *http.Request, err error) {
		RespondError(w, err)
	}, terminal,
		guard("first", nil),
		guard("second", BadRequest("second failed")),
		guard("third", BadRequest("third failed")),
	)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"second failed"}`, rec.Body.String())
}

func TestPipelinePassesDerivedRequest(t *testing.T) {
	withValue := func(r *http.Request) (*http.Request, error) {
		return r.WithContext(context.WithValue(r.Context(), ctxKey{}, "dish-1")), nil
	}
	var seen any
	terminal := func(w http.ResponseWriter, r *http.Request) error {
		seen = r.Context().Value(ctxKey{})
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	rec := httptest.NewRecorder()
	Pipeline(nil, terminal, withValue)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "dish-1", seen)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDecodeData(t *testing.T) {
	type payload struct {
		Name *string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{name: "emptyBody", body: ""},
		{name: "missingData", body: `{}`},
		{name: "nullData", body: `{"data":null}`},
		{name: "valid", body: `{"data":{"name":"Taco"}}`, want: "Taco"},
		{name: "malformed", body: `{"data":`, wantErr: "Request body must be valid JSON"},
		{name: "wrongFieldType", body: `{"data":{"name":5}}`, wantErr: "Field name has an invalid type"},
		{name: "dataNotObject", body: `{"data":"taco"}`, wantErr: "Request body data must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeData(r, &p)
			if tt.wantErr != "" {
				var webErr *Error
				require.ErrorAs(t, err, &webErr)
				require.Equal(t, http.StatusBadRequest, webErr.Status)
				require.Equal(t, tt.wantErr, webErr.Message)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				require.Nil(t, p.Name)
				return
			}
			require.NotNil(t, p.Name)
			require.Equal(t, tt.want, *p.Name)
		})
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRespondData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondData(rec, http.StatusCreated, map[string]int{"price": 10})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"price":10}}`, rec.Body.String())
}
