package response

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrResponse(t *testing.T) {
	r := Err(errors.ErrModelUnavailable)
	assert.Equal(t, errors.ErrModelUnavailable.Code, r.Code)
	assert.Equal(t, http.StatusServiceUnavailable, r.HTTPStatus())
	assert.False(t, r.IsSuccess())

	assert.True(t, Err(nil).IsSuccess())
}

func TestHTTPStatusFallback(t *testing.T) {
	// 未注册的错误码按类别推断 HTTP 状态
	r := &Response{Code: errors.MakeCode(99, errors.CategoryTimeout, 999)}
	assert.Equal(t, http.StatusGatewayTimeout, r.HTTPStatus())

	r = &Response{Code: errors.MakeCode(99, errors.CategoryRequest, 999)}
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())
}

func TestFail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/predict", nil)

	Fail(c, errors.ErrPredictionParse.WithCause(stderrors.New("unexpected token")))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrPredictionParse.Code, body.Code)
	assert.NotZero(t, body.Timestamp)
	assert.True(t, c.IsAborted())
}

func TestFailPlainError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Fail(c, stderrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":7000`)
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	OK(c, gin.H{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
