package middleware

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/pkg/errors"
	mwopts "github.com/kart-io/medrag/pkg/options/middleware"
	"github.com/kart-io/medrag/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(c *gin.Context, err interface{}, stack []byte)

// Recovery 返回 panic 恢复中间件，单个请求的 panic 不会导致进程退出。
//
// 参数：
//   - opts: 纯配置选项
//   - onPanic: 可选的 panic 处理器，为 nil 时仅记录日志并返回错误响应
func Recovery(opts mwopts.RecoveryOptions, onPanic PanicHandler) gin.HandlerFunc {
	withStack := opts.EnableStackTrace
	if withStack && isProductionEnvironment() {
		logger.Warn("Stack trace is enabled but running in production environment, it will only be logged.")
		withStack = false
	}

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(stack),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				if onPanic != nil {
					onPanic(c, r, stack)
				}

				msg := fmt.Sprintf("panic: %v", r)
				if withStack {
					msg = fmt.Sprintf("panic: %v\n%s", r, stack)
				}
				response.Fail(c, errors.ErrPanic.WithMessage(msg))
			}
		}()
		c.Next()
	}
}

// isProductionEnvironment checks APP_ENV or GO_ENV.
func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch env {
	case "production", "prod", "PRODUCTION", "PROD":
		return true
	default:
		return false
	}
}
