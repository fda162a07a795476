package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"supporting-smart-system/internal/dto"
	"supporting-smart-system/internal/model"
)

// 助手固定回复
const (
	AssistantEmptyAnswer  = "I couldn't generate a response at this time based on the laboratory records."
	AssistantUnavailable  = "The Lab Assistant is currently unavailable. Please ask an administrator to configure the assistant API key."
	defaultAssistantTemp  = 0.7
	assistantSystemPrompt = `You are an expert Laboratory Management Assistant for a corporate-level LIMS.
The current user role is: %s.
Database Context (JSON):
%s

Guidelines:
1. Answer questions based ONLY on the provided database context.
2. If suggesting maintenance, reference specific equipment IDs.
3. Maintain a professional, executive tone.
4. Use Markdown for formatting (bolding, lists, etc.).
5. If data is missing for a specific query, state that the information is not available in the current records.`
)

// AssistantContextItem 发送给文本补全服务的设备摘要，不含附件与负责人
type AssistantContextItem struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Division    string `json:"division"`
	Status      string `json:"status"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	InstallDate string `json:"installDate"`
}

// AssistantService 实验室助手
type AssistantService interface {
	Ask(ctx context.Context, actor Actor, query string) (*dto.AssistantAnswer, error)
	Context(ctx context.Context) ([]AssistantContextItem, error)
}

type assistantService struct {
	llm         llms.Model
	cache       *snapshotCache
	temperature float64
	logger      *zap.Logger
}

// NewAssistantService 创建 AssistantService 实例；llm 为 nil 时总是返回不可用提示
func NewAssistantService(llm llms.Model, cache *snapshotCache, temperature float64, logger *zap.Logger) AssistantService {
	if temperature <= 0 {
		temperature = defaultAssistantTemp
	}
	return &assistantService{llm: llm, cache: cache, temperature: temperature, logger: logger}
}

func (s *assistantService) Context(ctx context.Context) ([]AssistantContextItem, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return assistantContext(snap.Equipment), nil
}

// Ask 外部服务失败不返回错误，而是返回固定回复并标记 Fallback
func (s *assistantService) Ask(ctx context.Context, actor Actor, query string) (*dto.AssistantAnswer, error) {
	if s.llm == nil {
		return &dto.AssistantAnswer{Answer: AssistantUnavailable, Fallback: true}, nil
	}

	items, err := s.Context(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, fmt.Sprintf(assistantSystemPrompt, actor.Role, raw)),
		llms.TextParts(schema.ChatMessageTypeHuman, query),
	}, llms.WithTemperature(s.temperature), llms.WithTopP(0.95), llms.WithTopK(40))
	if err != nil {
		s.logger.Warn("助手调用失败", zap.Error(err))
		return &dto.AssistantAnswer{Answer: AssistantUnavailable, Fallback: true}, nil
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return &dto.AssistantAnswer{Answer: AssistantEmptyAnswer, Fallback: true}, nil
	}
	return &dto.AssistantAnswer{Answer: resp.Choices[0].Content}, nil
}

func assistantContext(items []model.Equipment) []AssistantContextItem {
	out := make([]AssistantContextItem, 0, len(items))
	for _, e := range items {
		out = append(out, AssistantContextItem{
			ID:          e.ID,
			Category:    e.Category,
			Division:    e.Division,
			Status:      e.Status,
			Brand:       e.Brand,
			Model:       e.Model,
			InstallDate: e.InstallationDate,
		})
	}
	return out
}
