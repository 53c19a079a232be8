package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/eventhub/internal/httputil"
)

func newTestContext(t *testing.T, url string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	c.Request = req
	return c
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		expectedOffset int
		expectedLimit  int
		expectError    bool
		errorMsg       string
	}{
		{
			name:           "default values",
			url:            "/",
			expectedOffset: 0,
			expectedLimit:  50,
		},
		{
			name:           "valid custom values",
			url:            "/?offset=10&limit=20",
			expectedOffset: 10,
			expectedLimit:  20,
		},
		{
			name:           "max limit",
			url:            "/?limit=100",
			expectedOffset: 0,
			expectedLimit:  100,
		},
		{
			name:        "offset negative",
			url:         "/?offset=-1",
			expectError: true,
			errorMsg:    "invalid offset parameter: must be a non-negative integer",
		},
		{
			name:        "limit zero",
			url:         "/?limit=0",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 100",
		},
		{
			name:        "limit exceeds max",
			url:         "/?limit=101",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 100",
		},
		{
			name:        "limit not an integer",
			url:         "/?limit=xyz",
			expectError: true,
			errorMsg:    "invalid limit parameter: must be between 1 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit, err := httputil.ParsePagination(newTestContext(t, tt.url))

			if tt.expectError {
				assert.EqualError(t, err, tt.errorMsg)
				assert.Equal(t, 0, offset)
				assert.Equal(t, 0, limit)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOffset, offset)
				assert.Equal(t, tt.expectedLimit, limit)
			}
		})
	}
}

func TestParseTimeQuery(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		got, err := httputil.ParseTimeQuery(newTestContext(t, "/"), "start_date")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("valid is normalized to UTC", func(t *testing.T) {
		got, err := httputil.ParseTimeQuery(newTestContext(t, "/?start_date=2026-01-02T03:04:05%2B02:00"), "start_date")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 1, 2, 1, 4, 5, 0, time.UTC), *got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := httputil.ParseTimeQuery(newTestContext(t, "/?end_date=yesterday"), "end_date")
		assert.EqualError(t, err, "invalid end_date parameter: must be an RFC 3339 timestamp")
	})
}

func TestNewListResponse(t *testing.T) {
	resp := httputil.NewListResponse[string](nil, 0)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)

	resp = httputil.NewListResponse([]string{"a", "b"}, 7)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, 7, resp.Count)
}
