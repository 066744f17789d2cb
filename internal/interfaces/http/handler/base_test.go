package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/procureflow/backend/internal/domain/shared"
	"github.com/procureflow/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// handlerCtx returns a test context with a bare GET request attached, since
// the response helpers read headers off c.Request.
func handlerCtx() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := map[string]struct {
		setup func(*gin.Context)
		want  string
	}{
		"from context": {
			setup: func(c *gin.Context) { c.Set(RequestIDKey, "req-7f3a") },
			want:  "req-7f3a",
		},
		"header fallback": {
			setup: func(c *gin.Context) { c.Request.Header.Set(RequestIDKey, "req-hdr") },
			want:  "req-hdr",
		},
		"context wins over header": {
			setup: func(c *gin.Context) {
				c.Set(RequestIDKey, "req-ctx")
				c.Request.Header.Set(RequestIDKey, "req-hdr")
			},
			want: "req-ctx",
		},
		"unset": {
			setup: func(c *gin.Context) {},
			want:  "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := handlerCtx()
			tt.setup(c)
			assert.Equal(t, tt.want, getRequestID(c))
		})
	}
}

func TestSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("Success", func(t *testing.T) {
		c, w := handlerCtx()
		h.Success(c, map[string]string{"match_id": "match-42"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("SuccessWithMeta", func(t *testing.T) {
		c, w := handlerCtx()
		h.SuccessWithMeta(c, []string{"BILL-2024-00017", "BILL-2024-00018"}, 100, 1, 10)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(100), resp.Meta.Total)
	})

	t.Run("Created", func(t *testing.T) {
		c, w := handlerCtx()
		h.Created(c, map[string]string{"id": uuid.NewString()})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("NoContent", func(t *testing.T) {
		router := gin.New()
		router.DELETE("/receipts/:id", func(c *gin.Context) { h.NoContent(c) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("DELETE", "/receipts/gr-41", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})
}

func TestErrorResponses(t *testing.T) {
	tests := map[string]struct {
		call     func(*BaseHandler, *gin.Context)
		wantHTTP int
		wantCode string
	}{
		"BadRequest": {
			call:     func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "Invalid receipt payload") },
			wantHTTP: http.StatusBadRequest,
			wantCode: dto.ErrCodeBadRequest,
		},
		"NotFound": {
			call:     func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "Vendor bill not found") },
			wantHTTP: http.StatusNotFound,
			wantCode: dto.ErrCodeNotFound,
		},
		"Unauthorized": {
			call:     func(h *BaseHandler, c *gin.Context) { h.Unauthorized(c, "Not authenticated") },
			wantHTTP: http.StatusUnauthorized,
			wantCode: dto.ErrCodeUnauthorized,
		},
		"Forbidden": {
			call:     func(h *BaseHandler, c *gin.Context) { h.Forbidden(c, "Access denied") },
			wantHTTP: http.StatusForbidden,
			wantCode: dto.ErrCodeForbidden,
		},
		"Conflict": {
			call:     func(h *BaseHandler, c *gin.Context) { h.Conflict(c, "Receipt already claimed") },
			wantHTTP: http.StatusConflict,
			wantCode: dto.ErrCodeConflict,
		},
		"InternalError": {
			call:     func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "Server error") },
			wantHTTP: http.StatusInternalServerError,
			wantCode: dto.ErrCodeInternal,
		},
		"TooManyRequests": {
			call:     func(h *BaseHandler, c *gin.Context) { h.TooManyRequests(c, "Rate limit exceeded") },
			wantHTTP: http.StatusTooManyRequests,
			wantCode: dto.ErrCodeRateLimited,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := handlerCtx()
			tt.call(h, c)

			assert.Equal(t, tt.wantHTTP, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()
	c.Set(RequestIDKey, "req-7f3a")

	h.BadRequest(c, "Invalid receipt payload")

	assert.Equal(t, "req-7f3a", decodeResponse(t, w).Error.RequestID)
}

func TestErrorWithCode(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()

	h.ErrorWithCode(c, dto.ErrCodeImbalancedLedger, "Ledger entries do not balance")

	// Business rule violations map to 422.
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeImbalancedLedger, decodeResponse(t, w).Error.Code)
}

func TestValidationError(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()
	c.Set(RequestIDKey, "req-7f3a")

	h.ValidationError(c, []dto.ValidationDetail{
		{Field: "bill_date", Message: "Invalid format"},
		{Field: "vendor_id", Message: "Required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-7f3a", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
}

func TestHandleDomainError(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantHTTP int
		wantCode string
	}{
		"not found": {
			err:      shared.ErrNotFound,
			wantHTTP: http.StatusNotFound,
			wantCode: dto.ErrCodeNotFound,
		},
		"already exists": {
			err:      shared.ErrAlreadyExists,
			wantHTTP: http.StatusConflict,
			wantCode: dto.ErrCodeAlreadyExists,
		},
		"invalid input": {
			err:      shared.ErrInvalidInput,
			wantHTTP: http.StatusBadRequest,
			wantCode: dto.ErrCodeInvalidInput,
		},
		"unauthorized": {
			err:      shared.ErrUnauthorized,
			wantHTTP: http.StatusUnauthorized,
			wantCode: dto.ErrCodeUnauthorized,
		},
		"forbidden": {
			err:      shared.ErrForbidden,
			wantHTTP: http.StatusForbidden,
			wantCode: dto.ErrCodeForbidden,
		},
		"invalid state": {
			err:      shared.ErrInvalidState,
			wantHTTP: http.StatusUnprocessableEntity,
			wantCode: dto.ErrCodeInvalidState,
		},
		"concurrency conflict": {
			err:      shared.ErrConcurrencyConflict,
			wantHTTP: http.StatusConflict,
			wantCode: dto.ErrCodeConcurrencyConflict,
		},
		"duplicate request": {
			err:      shared.ErrDuplicateRequest,
			wantHTTP: http.StatusConflict,
			wantCode: dto.ErrCodeConflict,
		},
		"imbalanced ledger": {
			err:      shared.NewDomainError("IMBALANCED_LEDGER", "Ledger entries do not balance: debit 100.00, credit 90.00"),
			wantHTTP: http.StatusUnprocessableEntity,
			wantCode: dto.ErrCodeImbalancedLedger,
		},
		"unmapped INVALID_ prefix": {
			err:      shared.NewDomainError("INVALID_GST_RATE", "GST rate cannot be negative"),
			wantHTTP: http.StatusBadRequest,
			wantCode: dto.ErrCodeInvalidInput,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := handlerCtx()

			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.wantHTTP, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestHandleDomainErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()
	c.Set(RequestIDKey, "req-7f3a")

	h.HandleDomainError(c, shared.ErrNotFound)

	assert.Equal(t, "req-7f3a", decodeResponse(t, w).Error.RequestID)
}

func TestHandleDomainErrorMasksUnknownErrors(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()

	h.HandleDomainError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
}

func TestHandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := handlerCtx()
		h.HandleError(c, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("domain error", func(t *testing.T) {
		c, w := handlerCtx()
		h.HandleError(c, shared.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		c, w := handlerCtx()
		h.HandleError(c, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("wrapped domain error unwraps", func(t *testing.T) {
		c, w := handlerCtx()
		h.HandleError(c, fmt.Errorf("loading bill: %w", shared.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})
}

func TestUnprocessableEntity(t *testing.T) {
	h := &BaseHandler{}
	c, w := handlerCtx()

	h.UnprocessableEntity(c, dto.ErrCodeBusinessRule, "Match is not pending review")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeBusinessRule, decodeResponse(t, w).Error.Code)
}
