package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	// ErrorTypeHTTP HTTP错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeIngest 文档解析错误
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeSummary 摘要服务错误
	ErrorTypeSummary ErrorType = "summary"
	// ErrorTypeRabbitMQ RabbitMQ错误
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeValidation 请求校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误并设置 span 状态
func RecordError(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 记录外部 HTTP 调用失败，按状态码区分客户端和服务端错误
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}
	category := "unknown"
	switch {
	case statusCode >= 400 && statusCode < 500:
		category = "client_error"
	case statusCode >= 500:
		category = "server_error"
	}
	RecordError(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}

// RecordQueueNack 记录消息被拒绝（nack），requeue 表示是否重新入队
func RecordQueueNack(span trace.Span, messageID string, reason string, requeue bool) {
	if span == nil {
		return
	}
	if reason == "" {
		reason = "message not acknowledged"
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeRabbitMQ)),
		attribute.String("error.message", reason),
		attribute.String("messaging.message_id", messageID),
		attribute.Bool("messaging.rabbitmq.requeue", requeue),
	)
	span.SetStatus(codes.Error, reason)
}
