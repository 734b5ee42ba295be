package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/pkg/errors"
	"github.com/prepline/prepline-backend/pkg/httputil"
	"github.com/prepline/prepline-backend/pkg/messaging"
)

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()

	httputil.Error(rec, errors.FIFOViolation("JR-20260309-001", 4, nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "JR-20260309-001", body.Error.Details["batch_number"])
	assert.Equal(t, "4", body.Error.Details["remaining_portions"])
}

func TestError_PlainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()

	httputil.Error(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestIfMatchVersion(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    int
		ok      bool
		wantErr bool
	}{
		{"absent", "", 0, false, false},
		{"quoted", `"3"`, 3, true, false},
		{"bare", "7", 7, true, false},
		{"garbage", `"abc"`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", nil)
			if tt.header != "" {
				req.Header.Set("If-Match", tt.header)
			}

			got, ok, err := httputil.IfMatchVersion(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRequestID_SetsCorrelation(t *testing.T) {
	var seen string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = messaging.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestValidate(t *testing.T) {
	type input struct {
		DishName string `validate:"required"`
		Portions int    `validate:"gte=0"`
	}

	err := httputil.Validate(input{Portions: -1})

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["DishName"])
	assert.Equal(t, "must be at least 0", appErr.Details["Portions"])
}
