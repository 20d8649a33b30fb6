package middleware_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/storage-service/internal/api/middleware"
	domainerrors "github.com/taskvault/storage-service/internal/domain/errors"
	"github.com/taskvault/storage-service/tests/testutils"
)

func newMiddlewareRouter() *gin.Engine {
	router := testutils.SetupTestRouter()
	router.Use(middleware.NewLoggingMiddleware().Logger())
	router.Use(middleware.NewErrorMiddleware().Recovery())
	router.Use(middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()))
	return router
}

func TestCORS_AllowedOrigin(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		"Origin": "http://localhost:3000",
	})

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.HeaderSessionID)
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		"Origin": "http://evil.example",
	})

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()

	// Act
	w := testutils.PerformRequest(router, http.MethodOptions, "/anything", nil, map[string]string{
		"Origin": "http://localhost:8080",
	})

	// Assert
	testutils.AssertStatusCode(t, http.StatusNoContent, w)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestLogger_AssignsRequestID(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = middleware.GetRequestID(c)
		c.Status(http.StatusOK)
	})

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/ping", nil, nil)

	// Assert: a generated id reaches both the handler and the response header.
	testutils.AssertStatusCode(t, http.StatusOK, w)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(middleware.HeaderRequestID))
}

func TestLogger_HonorsInboundRequestID(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		middleware.HeaderRequestID: "req-42",
	})

	// Assert
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/boom", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
	var resp middleware.ErrorResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, domainerrors.ErrCodeInternal, resp.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleError_DomainErrorStatus(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/missing", func(c *gin.Context) {
		middleware.HandleError(c, domainerrors.NewNotFoundError("task", "t1"))
	})

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/missing", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusNotFound, w)
	var resp middleware.ErrorResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, domainerrors.ErrCodeNotFound, resp.Code)
	assert.Equal(t, "t1", resp.Details)
}

func TestHandleError_OpaqueErrorHidden(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.GET("/fail", func(c *gin.Context) {
		middleware.HandleError(c, assert.AnError)
	})

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/fail", nil, nil)

	// Assert: backend detail never leaks to the client.
	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
	var resp middleware.ErrorResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, domainerrors.ErrCodeInternal, resp.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestNotFound_UnmatchedRoute(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.NoRoute(middleware.NotFound())

	// Act
	w := testutils.PerformRequest(router, http.MethodGet, "/nope", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusNotFound, w)
	var resp middleware.ErrorResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, domainerrors.ErrCodeNotFound, resp.Code)
	assert.Equal(t, "/nope", resp.Details)
}

func TestMethodNotAllowed_WrongVerb(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	router.HandleMethodNotAllowed = true
	router.NoMethod(middleware.MethodNotAllowed())
	router.GET("/only-get", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Act
	w := testutils.PerformRequest(router, http.MethodPost, "/only-get", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusMethodNotAllowed, w)
	var resp middleware.ErrorResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, "METHOD_NOT_ALLOWED", resp.Code)
	assert.Equal(t, http.MethodPost, resp.Details)
}

func TestSessionMiddleware_DefaultsWhenAbsent(t *testing.T) {
	// Arrange
	router := newMiddlewareRouter()
	var seen string
	router.Use(middleware.NewSessionMiddleware().ExtractSession())
	router.GET("/scoped", func(c *gin.Context) {
		seen = middleware.GetSessionID(c)
		c.Status(http.StatusOK)
	})

	// Act + Assert
	w := testutils.PerformRequest(router, http.MethodGet, "/scoped", nil, nil)
	testutils.AssertStatusCode(t, http.StatusOK, w)
	require.Empty(t, seen)

	w = testutils.PerformRequest(router, http.MethodGet, "/scoped", nil, map[string]string{
		middleware.HeaderSessionID: "s-9",
	})
	testutils.AssertStatusCode(t, http.StatusOK, w)
	assert.Equal(t, "s-9", seen)
}
