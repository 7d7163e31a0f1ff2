package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// ============================================================================
// Resource Errors (Category: 04)
// ============================================================================

// ErrRouteNotFound indicates the requested route does not exist.
var ErrRouteNotFound = Register(&Errno{
	Code:      MakeCode(ServiceCommon, CategoryResource, 1),
	HTTP:      http.StatusNotFound,
	GRPCCode:  codes.NotFound,
	MessageEN: "Route not found",
	MessageZH: "路由不存在",
})

// ============================================================================
// Internal Errors (Category: 07)
// ============================================================================

var (
	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server panic",
		MessageZH: "服务器内部异常",
	})
)

// ============================================================================
// Database / Cache Errors (Category: 08, 09)
// ============================================================================

var (
	// ErrVectorStore indicates a vector store failure.
	ErrVectorStore = Register(&Errno{
		Code:      MakeCode(ServiceInfraDB, CategoryDatabase, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Vector store error",
		MessageZH: "向量库错误",
	})

	// ErrCache indicates a cache failure.
	ErrCache = Register(&Errno{
		Code:      MakeCode(ServiceInfraCache, CategoryCache, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Cache error",
		MessageZH: "缓存错误",
	})
)

// ============================================================================
// Config Errors (Category: 12)
// ============================================================================

var (
	// ErrConfig indicates invalid configuration.
	ErrConfig = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConfig, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.FailedPrecondition,
		MessageEN: "Configuration error",
		MessageZH: "配置错误",
	})
)
