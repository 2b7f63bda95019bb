package mood

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/moodmate/backend/internal/analysis/mood"
	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
)

// Config 控制心情图表的数据来源。
type Config struct {
	Source       string
	HistoryLimit int
	Rand         *rand.Rand
}

// Service 为每次重绘生成心情图表。llm 来源失败时回退到关键词，再回退到随机。
type Service struct {
	source       string
	historyLimit int
	classifier   compose.Runnable[map[string]any, *schema.Message]
	logger       *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cacheMu   sync.Mutex
	cachedLen int
	cached    *analysis.Chart
}

// NewService 创建心情服务。chatModel 仅在 llm 来源下使用，可为空。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *log.Logger) (*Service, error) {
	source, err := ParseSource(cfg.Source)
	if err != nil {
		return nil, err
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 6
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d6f6f64))
	}

	svc := &Service{
		source:       source,
		historyLimit: historyLimit,
		logger:       logging.Component(logger, "mood"),
		rng:          rng,
	}

	if source != analysis.SourceLLM {
		return svc, nil
	}
	if chatModel == nil {
		svc.logger.Warn("llm mood source requested without a chat model, using keywords")
		svc.source = analysis.SourceKeywords
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile mood classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// ParseSource validates a mood source name; empty means random.
func ParseSource(raw string) (string, error) {
	switch source := strings.ToLower(strings.TrimSpace(raw)); source {
	case "", analysis.SourceRandom:
		return analysis.SourceRandom, nil
	case analysis.SourceKeywords, analysis.SourceLLM:
		return source, nil
	default:
		return "", fmt.Errorf("unknown mood source %q", raw)
	}
}

// Source returns the effective source.
func (s *Service) Source() string {
	return s.source
}

// Chart computes the chart for the given session snapshot.
func (s *Service) Chart(ctx context.Context, session chat.Session) analysis.Chart {
	switch s.source {
	case analysis.SourceLLM:
		if chart, ok := s.classify(ctx, session); ok {
			return chart
		}
		return s.keywordsOrRandom(session)
	case analysis.SourceKeywords:
		return s.keywordsOrRandom(session)
	default:
		return s.random()
	}
}

func (s *Service) random() analysis.Chart {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return analysis.Random(s.rng)
}

func (s *Service) keywordsOrRandom(session chat.Session) analysis.Chart {
	texts := make([]string, 0, len(session.Transcript))
	for _, turn := range session.Transcript {
		texts = append(texts, turn.UserText)
	}
	if chart, ok := analysis.Analyze(texts...); ok {
		return chart
	}
	return s.random()
}

func (s *Service) classify(ctx context.Context, session chat.Session) (analysis.Chart, bool) {
	if s.classifier == nil || len(session.Transcript) == 0 {
		return analysis.Chart{}, false
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.cached != nil && s.cachedLen == len(session.Transcript) {
		return *s.cached, true
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{
		"name":    session.DisplayName,
		"history": formatHistory(session.Transcript, s.historyLimit),
	})
	if err != nil {
		s.logger.Warn("classifier invoke failed, use fallback", "err", err)
		return analysis.Chart{}, false
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return analysis.Chart{}, false
	}

	weights, err := parseClassifierOutput(msg.Content)
	if err != nil {
		s.logger.Warn("classifier output parse failed, use fallback", "err", err)
		return analysis.Chart{}, false
	}

	chart := analysis.FromWeights(analysis.SourceLLM, weights)
	s.cached = &chart
	s.cachedLen = len(session.Transcript)
	return chart, true
}

// parseClassifierOutput 解析大模型返回的 JSON。
func parseClassifierOutput(content string) (map[analysis.Label]float64, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	var payload map[string]float64
	if err := sonic.UnmarshalString(trimmed[start:end+1], &payload); err != nil {
		return nil, err
	}

	weights := make(map[analysis.Label]float64, len(analysis.Labels))
	total := 0.0
	for _, label := range analysis.Labels {
		if v := payload[string(label)]; v > 0 {
			weights[label] = v
			total += v
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("classifier returned no mood weights")
	}
	return weights, nil
}

func formatHistory(transcript []chat.Turn, limit int) string {
	start := len(transcript) - limit
	if start < 0 {
		start = 0
	}

	var builder strings.Builder
	for _, turn := range transcript[start:] {
		if text := strings.TrimSpace(turn.UserText); text != "" {
			builder.WriteString("User: ")
			builder.WriteString(text)
			builder.WriteString("\n")
		}
		if text := strings.TrimSpace(turn.BotText); text != "" {
			builder.WriteString("MoodMate: ")
			builder.WriteString(text)
			builder.WriteString("\n")
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

const classifierSystemPrompt = "You read a short conversation between a user and their emotional companion and estimate how the user feels. " +
	"Answer with a single JSON object whose keys are happy, sad, annoyed and confused, each mapped to a number between 0 and 100 giving the share of that mood. " +
	"Do not output anything else."

const classifierUserPrompt = "The user's name is {name}.\n\nRecent conversation:\n{history}\n\nReturn the JSON object now."
