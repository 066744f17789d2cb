package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)

	// with nothing expected, ExpectationsWereMet passes
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	assert.NotNil(t, tc.Context)
	assert.NotNil(t, tc.Recorder)
	assert.NotNil(t, tc.Engine)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestTestContextSetters(t *testing.T) {
	tests := map[string]struct {
		set  func(tc *TestContext)
		key  string
		want string
	}{
		"request id": {
			set:  func(tc *TestContext) { tc.SetRequestID("req-7f3a") },
			key:  "X-Request-ID",
			want: "req-7f3a",
		},
		"tenant id": {
			set:  func(tc *TestContext) { tc.SetTenantID("tenant-456") },
			key:  "X-Tenant-ID",
			want: "tenant-456",
		},
		"user id": {
			set:  func(tc *TestContext) { tc.SetUserID("user-789") },
			key:  "X-User-ID",
			want: "user-789",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tc := NewTestContext(t)
			tt.set(tc)

			val, exists := tc.Context.Get(tt.key)
			assert.True(t, exists)
			assert.Equal(t, tt.want, val)
		})
	}
}

func TestTestContextRequestAndResponse(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetHeader("Authorization", "Bearer token")
	assert.Equal(t, "Bearer token", tc.Context.Request.Header.Get("Authorization"))

	tc.Recorder.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, tc.ResponseCode())
}

func TestDeterministicUUIDs(t *testing.T) {
	assert.Equal(t, NewTestUUID("vendor-acme"), NewTestUUID("vendor-acme"))
	assert.NotEqual(t, NewTestUUID("vendor-acme"), NewTestUUID("vendor-globex"))
	assert.NotEqual(t, NewRandomUUID(), NewRandomUUID())

	zero := "00000000-0000-0000-0000-000000000000"
	assert.NotEqual(t, zero, TestTenantID().String())
	assert.Equal(t, TestTenantID(), TestTenantID())
	assert.NotEqual(t, zero, TestUserID().String())
	assert.Equal(t, TestUserID(), TestUserID())
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, 100*time.Millisecond)
	defer cancel()

	require.NotNil(t, ctx)
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestContextWithCancel(t *testing.T) {
	ctx, cancel := ContextWithCancel(t)

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before cancel was called")
	default:
	}

	cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context still live after cancel")
	}
}

func TestAssertEventually(t *testing.T) {
	counter := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		counter = 1
	}()

	AssertEventually(t, func() bool {
		return counter == 1
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool {
		return false
	}, 50*time.Millisecond, 10*time.Millisecond)
}

func TestRunHTTPTestCase(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "hello"})
	}

	RunHTTPTestCase(t, handler, HTTPTestCase{
		Name:           "simple test",
		Method:         http.MethodGet,
		Path:           "/test",
		ExpectedStatus: http.StatusOK,
		ExpectedBody:   map[string]any{"success": true},
	})
}

func TestRunHTTPTestCases(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	}

	RunHTTPTestCases(t, handler, []HTTPTestCase{
		{Name: "case 1", ExpectedStatus: http.StatusOK},
		{Name: "case 2", ExpectedStatus: http.StatusOK},
	})
}

func TestJSONResponseHelpers(t *testing.T) {
	type response struct {
		Key string `json:"key"`
	}

	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponse(t, tc)
	assert.Equal(t, "value", resp["key"])

	typed := JSONResponseAs[response](t, tc)
	assert.Equal(t, "value", typed.Key)
}

func TestAssertSuccessResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"success": true})

	AssertSuccessResponse(t, tc)
}

func TestToJSONReader(t *testing.T) {
	reader := ToJSONReader(t, map[string]string{"key": "value"})
	require.NotNil(t, reader)
}
