package intent

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/metrics"
)

const (
	// DefaultAPIURL is used when no endpoint is configured.
	DefaultAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3-70b-8192"
	// DefaultTimeout bounds one classification call.
	DefaultTimeout = 10 * time.Second

	temperature = 0.1
)

const systemPrompt = `你是政务服务搜索的意图识别助手。分析用户的搜索内容，只返回一个 JSON 对象，不要输出 Markdown 或任何解释。
格式：
{
  "keywords": ["关键词"],
  "synonyms": ["政务规范说法或同义表达，例如“生孩子”对应“生育登记”“出生医学证明”"],
  "target_user": "法人" | "自然人" | "不确定",
  "location": "城市名" 或 null,
  "intent_category": "查询" | "办理" | "投诉" | "咨询" 等
}
用户未提及具体城市时 location 返回 null；无法判断办事主体时 target_user 返回 "不确定"。`

// OpenAIClassifier calls a chat-completion endpoint that speaks the OpenAI API.
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClassifier creates a classifier for cfg. Empty fields take defaults.
func NewOpenAIClassifier(cfg Config) *OpenAIClassifier {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = BaseURL(apiURL)

	return &OpenAIClassifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// BaseURL converts a full chat-completions URL into the client base URL.
// URLs that already point at the API root are returned without a trailing slash.
func BaseURL(apiURL string) string {
	u := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	return strings.TrimSuffix(u, "/chat/completions")
}

// Model returns the configured model name.
func (c *OpenAIClassifier) Model() string {
	return c.model
}

// Classify sends query to the model and parses its JSON answer.
func (c *OpenAIClassifier) Classify(ctx context.Context, query string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "用户搜索内容：" + query},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.IntentRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := reasonFor(ctx, err)
		return c.degrade(reason, zap.Error(err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return c.degrade(EmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	parsed, ok := Parse(content)
	if !ok {
		return c.degrade(Unparseable, zap.Int("content_length", len(content)))
	}

	metrics.IntentRequestsTotal.WithLabelValues(c.model, "ok").Inc()
	c.logger.Debug("intent classified",
		zap.Strings("keywords", parsed.Keywords),
		zap.Strings("synonyms", parsed.Synonyms),
		zap.Stringer("target_user", parsed.TargetUser),
		zap.String("location", parsed.Location),
	)
	return Succeeded(parsed)
}

func (c *OpenAIClassifier) degrade(reason DegradedReason, fields ...zap.Field) Result {
	metrics.IntentRequestsTotal.WithLabelValues(c.model, string(reason)).Inc()
	fields = append(fields, zap.String("reason", string(reason)), zap.String("model", c.model))
	if reason == Canceled {
		c.logger.Debug("intent classification abandoned", fields...)
	} else {
		c.logger.Warn("intent classification degraded", fields...)
	}
	return Degraded(reason)
}

// reasonFor maps a client error onto a degraded reason.
func reasonFor(ctx context.Context, err error) DegradedReason {
	switch {
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return BadStatus
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 400 {
			return BadStatus
		}
	}
	return Transport
}
