// Package pipeline 定义了查询请求的核心流程：翻译 → 执行 → 合成 → 记录会话。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"sqlchat-go/internal/config"
	"sqlchat-go/internal/executor"
	"sqlchat-go/internal/metrics"
	"sqlchat-go/internal/model"
	"sqlchat-go/internal/nl2sql"
	"sqlchat-go/internal/service"
	"sqlchat-go/internal/synthesis"
	"sqlchat-go/pkg/log"
	"sqlchat-go/pkg/tasks"
)

// auditTimeout 限制单次审计发布的耗时，审计不影响请求结果。
const auditTimeout = 3 * time.Second

// AuditPublisher 发布查询审计，kafka.Producer 与 service.AuditRecorder 都满足该接口。
type AuditPublisher interface {
	Publish(ctx context.Context, task tasks.QueryAuditTask) error
}

// Answer 是一次查询的结果。只有新建会话时 Created 为 true。
type Answer struct {
	Text           string
	ConversationID string
	Title          string
	Created        bool
}

// Processor 封装了查询处理的所有依赖和逻辑。
type Processor struct {
	translator    nl2sql.Translator
	executor      executor.Executor
	synthesizer   synthesis.Synthesizer
	conversations service.ConversationService
	audits        AuditPublisher
	metrics       *metrics.Collector
	policy        config.PipelineConfig

	pending sync.WaitGroup // 尚未完成的审计发布
}

// NewProcessor 创建一个新的 Processor 实例。audits 与 collector 可以为 nil。
func NewProcessor(
	translator nl2sql.Translator,
	exec executor.Executor,
	synthesizer synthesis.Synthesizer,
	conversations service.ConversationService,
	audits AuditPublisher,
	collector *metrics.Collector,
	policy config.PipelineConfig,
) *Processor {
	return &Processor{
		translator:    translator,
		executor:      exec,
		synthesizer:   synthesizer,
		conversations: conversations,
		audits:        audits,
		metrics:       collector,
		policy:        policy,
	}
}

// Process 处理一个问题。conversationID 为空时新建会话。
// 翻译失败与存储不可用总是直接返回错误；执行失败与合成失败按配置的策略处理。
func (p *Processor) Process(ctx context.Context, userID uint, question, conversationID string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", model.ErrInvalidQuestion)
	}
	if limit := p.policy.MaxQuestionLength; limit > 0 && utf8.RuneCountInString(question) > limit {
		return nil, fmt.Errorf("%w: question longer than %d characters", model.ErrInvalidQuestion, limit)
	}

	// 先确认会话归属，避免为越权请求执行任何语句
	if err := p.conversations.Authorize(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	audit := tasks.QueryAuditTask{
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Status:         model.AuditStatusOK,
		CreatedAt:      time.Now(),
	}
	defer func() { p.publishAudit(ctx, audit) }()

	// 1. 翻译
	start := time.Now()
	translated, err := p.translator.Translate(ctx, question)
	if err != nil {
		p.metrics.ObserveStage(metrics.StageTranslate, metrics.OutcomeError, time.Since(start))
		log.Errorf("[Processor] 翻译失败, user: %d, error: %v", userID, err)
		audit.Status = model.AuditStatusTranslationUnavailable
		audit.ErrorDetail = err.Error()
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageTranslate, metrics.OutcomeOK, time.Since(start))
	audit.SQL = translated.SQL
	log.Infof("[Processor] 翻译完成, user: %d, sql: %s", userID, translated.SQL)

	// 2. 执行
	outcome, err := p.execute(ctx, translated.SQL, &audit)
	if err != nil {
		return nil, err
	}

	// 3. 合成
	text, err := p.synthesize(ctx, question, outcome, &audit)
	if err != nil {
		return nil, err
	}

	// 4. 记录会话。语句已经提交，这一步失败不会回滚数据变更
	start = time.Now()
	appended, err := p.conversations.AppendTurn(ctx, userID, conversationID, question, text)
	if err != nil {
		p.metrics.ObserveStage(metrics.StagePersist, metrics.OutcomeError, time.Since(start))
		log.Errorf("[Processor] 保存会话失败, user: %d, error: %v", userID, err)
		if errors.Is(err, model.ErrStoreUnavailable) {
			audit.Status = model.AuditStatusStoreUnavailable
			audit.ErrorDetail = err.Error()
		}
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StagePersist, metrics.OutcomeOK, time.Since(start))
	audit.ConversationID = appended.ConversationID

	return &Answer{
		Text:           text,
		ConversationID: appended.ConversationID,
		Title:          appended.Title,
		Created:        appended.Created,
	}, nil
}

func (p *Processor) execute(ctx context.Context, stmt string, audit *tasks.QueryAuditTask) (synthesis.Outcome, error) {
	start := time.Now()
	result, err := p.executor.Execute(ctx, stmt)
	if err == nil {
		p.metrics.ObserveStage(metrics.StageExecute, metrics.OutcomeOK, time.Since(start))
		p.metrics.ObserveStatement(string(result.Kind))
		audit.Kind = string(result.Kind)
		audit.RowCount = result.RowCount()
		return synthesis.Outcome{Result: result}, nil
	}

	p.metrics.ObserveStage(metrics.StageExecute, metrics.OutcomeError, time.Since(start))
	audit.ErrorDetail = err.Error()
	if !errors.Is(err, model.ErrQueryExecution) {
		log.Errorf("[Processor] 数据库不可用: %v", err)
		audit.Status = model.AuditStatusStoreUnavailable
		return synthesis.Outcome{}, err
	}

	// 完整的数据库报错只写日志和审计，合成器只知道执行失败
	log.Warnf("[Processor] 语句执行失败, sql: %s, error: %v", stmt, err)
	audit.Status = model.AuditStatusExecutionError
	if p.policy.ExecutionErrorPolicy == config.PolicyFail {
		return synthesis.Outcome{}, err
	}
	return synthesis.Outcome{Failed: true}, nil
}

func (p *Processor) synthesize(ctx context.Context, question string, outcome synthesis.Outcome, audit *tasks.QueryAuditTask) (string, error) {
	start := time.Now()
	text, err := p.synthesizer.Synthesize(ctx, question, outcome)
	if err == nil {
		p.metrics.ObserveStage(metrics.StageSynthesize, metrics.OutcomeOK, time.Since(start))
		return text, nil
	}

	log.Errorf("[Processor] 合成回答失败: %v", err)
	if audit.Status == model.AuditStatusOK {
		audit.Status = model.AuditStatusSynthesisUnavailable
		audit.ErrorDetail = err.Error()
	}
	if p.policy.SynthesisFailurePolicy == config.PolicyFail {
		p.metrics.ObserveStage(metrics.StageSynthesize, metrics.OutcomeError, time.Since(start))
		return "", err
	}
	p.metrics.ObserveStage(metrics.StageSynthesize, metrics.OutcomeDegraded, time.Since(start))
	return synthesis.Fallback(outcome), nil
}

// publishAudit 在后台尽力发布审计，失败只记录日志，不占用请求的响应时间。
// 调用方取消请求后仍会发布。
func (p *Processor) publishAudit(ctx context.Context, audit tasks.QueryAuditTask) {
	if p.audits == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer cancel()
		if err := p.audits.Publish(ctx, audit); err != nil {
			p.metrics.AuditDropped()
			log.Warnf("[Processor] 发布查询审计失败: %v", err)
		}
	}()
}

// Wait 阻塞直到所有已发起的审计发布结束，停机时在关闭生产者之前调用。
func (p *Processor) Wait() {
	p.pending.Wait()
}
