package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func run(headerValue string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if headerValue != "" {
		c.Request.Header.Set("X-Request-ID", headerValue)
	}
	Middleware()(c)
	return rec, Value(c)
}

func TestRequestIDKeepsValidClientID(t *testing.T) {
	rec, ctxValue := run("client-req_42")

	assert.Equal(t, "client-req_42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "client-req_42", ctxValue)
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	rec, ctxValue := run("")

	id := rec.Header().Get("X-Request-ID")
	assert.Len(t, id, 32)
	assert.Equal(t, id, ctxValue)
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	rec, _ := run("abc\tdef injected")

	id := rec.Header().Get("X-Request-ID")
	assert.NotContains(t, id, "injected")
	assert.Len(t, id, 32)
}

func TestRequestIDReplacesOversizedClientID(t *testing.T) {
	rec, _ := run(strings.Repeat("a", 100))

	assert.Len(t, rec.Header().Get("X-Request-ID"), 32)
}
