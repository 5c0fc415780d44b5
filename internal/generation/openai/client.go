// Package openai implements model.Generator against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/config"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// Call names a generation kind. Used for token limits, metrics and error context.
type Call string

const (
	CallInterpretation        Call = "interpretation"
	CallColor                 Call = "color"
	CallMBTISummary           Call = "mbti_summary"
	CallSajuSummary           Call = "saju_summary"
	CallPremiumInterpretation Call = "premium_interpretation"
)

const maxErrorBody = 4 << 10

type callParams struct {
	maxTokens   int
	temperature float64
}

var params = map[Call]callParams{
	CallInterpretation:        {maxTokens: 300, temperature: 0.7},
	CallColor:                 {maxTokens: 50, temperature: 0.6},
	CallMBTISummary:           {maxTokens: 200, temperature: 0.7},
	CallSajuSummary:           {maxTokens: 200, temperature: 0.7},
	CallPremiumInterpretation: {maxTokens: 1000, temperature: 0.7},
}

// Observer is notified after every provider call.
type Observer interface {
	ObserveGeneration(call string, err error, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveGeneration(string, error, time.Duration) {}

var _ model.Generator = (*Client)(nil)

type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	model    string
	limiter  *rate.Limiter
	clock    clock.Clock
	observer Observer
	logger   *logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client built from the configured timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.observer = o }
}

func NewClient(cfg config.OpenAI, clk clock.Clock, log *logger.Logger, opts ...Option) *Client {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		limiter:  rate.NewLimiter(limit, burst),
		clock:    clk,
		observer: noopObserver{},
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Interpretation(ctx context.Context, prompt model.PromptContext) (string, error) {
	mbti := prompt.MBTI
	if mbti == "" || mbti == model.ProfileUnknown {
		mbti = "모름"
	}
	return c.complete(ctx, CallInterpretation,
		"당신은 꿈 해몽 전문가입니다. 사용자의 생년월일과 MBTI를 고려하여 맞춤형 해몽을 제공합니다.",
		fmt.Sprintf("내 생년월일: %s, MBTI: %s\n꿈 내용: %s\n이 꿈이 나에게 어떤 의미가 있을까요? 간략하고 명확하게 설명해 주세요.",
			prompt.Birthdate, mbti, prompt.DreamText),
	)
}

func (c *Client) ColorName(ctx context.Context, dreamText string) (string, error) {
	return c.complete(ctx, CallColor,
		"당신은 점성술 및 심리학 전문가입니다. 사용자의 꿈을 분석하여 행운의 색깔을 추천합니다.",
		fmt.Sprintf("꿈 내용: %s\n이 꿈에 어울리는 행운의 색깔을 한가지 색으로 추천해주세요. (간결하게 1~2 단어로 답변)", dreamText),
	)
}

func (c *Client) ProfileSummary(ctx context.Context, kind model.SummaryKind, profile model.Profile) (string, error) {
	switch kind {
	case model.SummaryMBTI:
		return c.complete(ctx, CallMBTISummary,
			"당신은 MBTI 성격 분석 전문가입니다. 사용자의 MBTI 유형을 170토큰 이내로 요약해 주세요.",
			fmt.Sprintf("사용자의 MBTI 유형: %s\n해당 성향의 핵심 특성을 간단히 설명해 주세요.", profile.MBTI),
		)
	case model.SummarySaju:
		today := ""
		if d, err := c.clock.Today(); err == nil {
			today = d.String()
		}
		return c.complete(ctx, CallSajuSummary,
			"당신은 사주 분석 전문가입니다. 사용자의 생년월일과 태어난 시간을 기반으로 특정 날짜의 사주를 170토큰 이내로 요약해 주세요.",
			fmt.Sprintf("사용자의 생년월일: %s, 태어난 시간: %s\n오늘 날짜: %s\n오늘 날짜를 기준으로 이번 달의 사주를 요약해 주세요.",
				profile.Birthdate, profile.BirthTime, today),
		)
	default:
		return "", fmt.Errorf("unknown summary kind %q: %w", kind, model.ErrGenerationFailed)
	}
}

func (c *Client) PremiumInterpretation(ctx context.Context, prompt model.PremiumPromptContext) (string, error) {
	return c.complete(ctx, CallPremiumInterpretation,
		"당신은 전문적인 꿈 해몽가입니다. 사용자의 사주와 MBTI 성향을 바탕으로 꿈의 의미를 자세히 설명해 주세요.",
		fmt.Sprintf("사주 요약: %s\nMBTI 요약: %s\n꿈 내용: %s\n이 정보를 종합하여 꿈에 대한 해몽 결과를 900토큰 이내로 자세히 설명해 주세요.",
			prompt.SajuSummary, prompt.MBTISummary, prompt.DreamText),
	)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// complete runs one chat completion. Every failure wraps model.ErrGenerationFailed.
func (c *Client) complete(ctx context.Context, call Call, system, user string) (string, error) {
	start := time.Now()
	content, err := c.do(ctx, call, system, user)
	c.observer.ObserveGeneration(string(call), err, time.Since(start))
	if err != nil {
		c.logger.Debug("generation call failed", "call", call, "error", err)
		return "", fmt.Errorf("%s: %w", call, errors.Join(model.ErrGenerationFailed, err))
	}
	return content, nil
}

func (c *Client) do(ctx context.Context, call Call, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	p := params[call]
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := gjson.GetBytes(raw, "error.message").String()
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, msg)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return "", errors.New("provider returned malformed json")
	}

	content := strings.TrimSpace(gjson.GetBytes(raw, "choices.0.message.content").String())
	if content == "" {
		return "", errors.New("provider returned empty content")
	}
	return content, nil
}
