// Package apperrors 定义了问答流程中各层共享的错误分类。
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrConfiguration 表示配置或启动所需产物不合法，应在对外服务前直接失败。
	ErrConfiguration = errors.New("configuration error")
	// ErrIndexCorrupt 表示索引文件与分块文件不匹配（数量或来源不一致）。
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrServiceUnavailable 表示外部 Embedding / LLM 调用失败或超时。
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrValidation 表示请求缺少问题字段等软性错误。
	ErrValidation = errors.New("validation error")
	// ErrRetrieval 标记检索阶段的失败，与生成阶段的失败区分开。
	ErrRetrieval = errors.New("retrieval failed")
)

// HTTPStatus 将流程错误映射为对外的 HTTP 状态码。
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRetrieval):
		return http.StatusInternalServerError
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
