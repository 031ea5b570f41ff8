package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-extractor/internal/config"
	"resume-extractor/internal/processor"
	"resume-extractor/internal/tracing"
)

// Processor 队列消费者依赖的处理能力，由 *processor.ResumeProcessor 实现
type Processor interface {
	ProcessBytes(ctx context.Context, data []byte, filename string, withSummary bool) (*processor.Result, error)
	ProcessText(ctx context.Context, text, source string, withSummary bool) (*processor.Result, error)
}

// Decision 一条投递的确认方式
type Decision int

const (
	// Ack 处理完成（成功或永久失败，结果均已发布）
	Ack Decision = iota
	// Requeue 结果发布失败，重新入队等待重试
	Requeue
)

// Worker 消费抽取请求并发布结果
type Worker struct {
	proc   Processor
	pub    Publisher
	cfg    config.RabbitMQConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewWorker 创建消费者
func NewWorker(proc Processor, pub Publisher, cfg config.RabbitMQConfig, logger zerolog.Logger) *Worker {
	return &Worker{proc: proc, pub: pub, cfg: cfg, logger: logger, now: time.Now}
}

// Handle 处理一条消息体并决定确认方式。
// 无法解析或无法处理的请求作为失败结果发布，不会无限重试。
func (w *Worker) Handle(ctx context.Context, body []byte) Decision {
	ctx, span := tracing.Tracer().Start(ctx, "queue.Worker.Handle", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var req ExtractionRequestMessage
	if err := json.Unmarshal(body, &req); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		w.logger.Error().Err(err).Msg("无法解析抽取请求，消息被丢弃")
		return Ack
	}
	if req.SubmissionID == "" {
		req.SubmissionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("resume.submission_id", req.SubmissionID))

	result := ExtractionResultMessage{SubmissionID: req.SubmissionID}
	res, err := w.process(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeIngest)
		w.logger.Warn().Err(err).Str("submission_id", req.SubmissionID).Msg("抽取失败")
		result.Status = StatusFailed
		result.Error = err.Error()
	} else {
		result.Status = StatusCompleted
		result.Record = res.Record
		result.Summary = res.Summary
		if res.SummaryError != "" {
			result.Error = res.SummaryError
		}
	}
	result.ProcessedAt = w.now().UTC()

	pubCtx, cancel := context.WithTimeout(ctx, config.GetDuration(w.cfg.PublishTimeout, 5*time.Second))
	defer cancel()
	if err := w.pub.PublishJSON(pubCtx, w.cfg.Exchange, w.cfg.ResultKey, result, true); err != nil {
		tracing.RecordQueueNack(span, req.SubmissionID, err.Error(), true)
		w.logger.Error().Err(err).Str("submission_id", req.SubmissionID).Msg("发布抽取结果失败，消息重新入队")
		return Requeue
	}
	w.logger.Info().Str("submission_id", req.SubmissionID).Str("status", result.Status).Msg("抽取结果已发布")
	return Ack
}

func (w *Worker) process(ctx context.Context, req ExtractionRequestMessage) (*processor.Result, error) {
	withSummary := req.WithSummary || w.cfg.WithSummary
	if req.Text != "" {
		return w.proc.ProcessText(ctx, req.Text, req.SubmissionID, withSummary)
	}
	if req.ContentBase64 == "" {
		return nil, fmt.Errorf("请求既没有 text 也没有 content_base64")
	}
	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("content_base64 解码失败: %w", err)
	}
	return w.proc.ProcessBytes(ctx, data, req.Filename, withSummary)
}

// Run 从 deliveries 并发消费直到 ctx 结束或通道关闭
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery, workers int) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					w.settle(d, w.Handle(ctx, d.Body))
				}
			}
		}()
	}
	wg.Wait()
}

// Start 在后台运行 Run，返回的通道在所有消费协程退出、消息均已确认后关闭
func (w *Worker) Start(ctx context.Context, deliveries <-chan amqp.Delivery, workers int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, deliveries, workers)
	}()
	return done
}

func (w *Worker) settle(d amqp.Delivery, decision Decision) {
	var err error
	switch decision {
	case Requeue:
		err = d.Nack(false, true)
	default:
		err = d.Ack(false)
	}
	if err != nil {
		w.logger.Error().Err(err).Msg("确认消息失败")
	}
}
