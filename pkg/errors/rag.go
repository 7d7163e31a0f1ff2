package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// RAG 服务代码: 20
// 错误码格式: AABBCCC
// - AA: 20 (RAG 服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrInvalidStatement = Register(New(MakeCode(ServiceRAG, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument,
		"Statement must be a non-empty string", "陈述必须是非空字符串"))

	// 知识库缺失 (类别 04)
	ErrNoChunks = Register(New(MakeCode(ServiceRAG, CategoryResource, 1), http.StatusNotFound, codes.NotFound,
		"No chunks were produced from the corpus", "语料库未生成任何文本块"))

	// 内部错误 (类别 07)
	ErrIngestionFailed = Register(New(MakeCode(ServiceRAG, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal,
		"Ingestion failed", "知识库构建失败"))
	ErrRetrievalFailed = Register(New(MakeCode(ServiceRAG, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal,
		"Retrieval failed", "检索失败"))

	// 模型服务 (类别 10)
	ErrModelUnavailable = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 1), http.StatusServiceUnavailable, codes.Unavailable,
		"Model service unavailable", "模型服务不可用"))
	ErrPredictionParse = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 2), http.StatusBadGateway, codes.Internal,
		"Model output could not be parsed into a prediction", "模型输出无法解析为预测结果"))

	// 超时 (类别 11)
	ErrPredictTimeout = Register(New(MakeCode(ServiceRAG, CategoryTimeout, 1), http.StatusGatewayTimeout, codes.DeadlineExceeded,
		"Prediction timed out", "预测超时"))

	// 配置错误 (类别 12)
	ErrTopicMapMissing = Register(New(MakeCode(ServiceRAG, CategoryConfig, 1), http.StatusInternalServerError, codes.FailedPrecondition,
		"Topic map not found", "主题映射文件不存在"))
	ErrTopicMapInvalid = Register(New(MakeCode(ServiceRAG, CategoryConfig, 2), http.StatusInternalServerError, codes.FailedPrecondition,
		"Topic map is invalid", "主题映射文件无效"))
	ErrCorpusMissing = Register(New(MakeCode(ServiceRAG, CategoryConfig, 3), http.StatusInternalServerError, codes.FailedPrecondition,
		"Corpus directory not found", "语料目录不存在"))
	ErrKnowledgeBaseIncomplete = Register(New(MakeCode(ServiceRAG, CategoryConfig, 4), http.StatusInternalServerError, codes.FailedPrecondition,
		"Knowledge base is missing or incomplete, run ingestion first", "知识库缺失或未完成构建，请先运行导入"))
)
