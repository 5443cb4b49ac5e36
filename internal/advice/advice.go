// Package advice answers free-text farming questions, serving fuzzy-matched
// past answers before paying for a generative call.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/models"
)

const (
	// Minimum similarity (0-100) for a cached answer to be reused.
	defaultThreshold = 85

	systemPrompt = "You're a smart agriculture assistant helping farmers with crop and weather-related advice. Keep answers short enough for an SMS-sized screen."
)

// ErrUpstream is returned when the generative backend fails.
var ErrUpstream = errors.New("advice provider failure")

// Cache is the persistence surface for stored advice.
type Cache interface {
	ListAdvice(ctx context.Context) ([]*models.Advice, error)
	CreateAdvice(ctx context.Context, advice *models.Advice) error
}

// Options for the advice service.
type Options struct {
	Cache     Cache
	APIKey    string
	BaseURL   string
	Model     string
	Threshold int
	Logger    *zap.SugaredLogger
}

type Service struct {
	opt    *Options
	client *openai.Client
}

func NewService(opt *Options) (*Service, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing options")
	case opt.Cache == nil:
		return nil, errors.New("missing advice cache")
	case opt.APIKey == "":
		return nil, errors.New("missing api key")
	case opt.Model == "":
		return nil, errors.New("missing model")
	case opt.Logger == nil:
		return nil, errors.New("missing logger")
	default:
		if opt.Threshold == 0 {
			opt.Threshold = defaultThreshold
		}
	}

	cfg := openai.DefaultConfig(opt.APIKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = opt.BaseURL
	}

	return &Service{opt: opt, client: openai.NewClientWithConfig(cfg)}, nil
}

// Get answers a query, preferring a stored answer whose query is similar
// enough. Novel (query, response) pairs are persisted for future matches.
func (s *Service) Get(ctx context.Context, query string) (string, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	cached, err := s.findSimilar(ctx, query)
	if err != nil {
		// A cache miss from a broken cache read should not block the
		// generative path.
		s.opt.Logger.Warnw("advice cache lookup failed", "error", err)
	}
	if cached != "" {
		return cached, nil
	}

	res, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.opt.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}

	text := strings.TrimSpace(res.Choices[0].Message.Content)

	if err := s.opt.Cache.CreateAdvice(ctx, &models.Advice{QueryText: query, ResponseText: text}); err != nil {
		s.opt.Logger.Errorw("failed to persist advice", "error", err)
	}

	return text, nil
}

// findSimilar scans stored advice for the best fuzzy match at or above the
// threshold.
func (s *Service) findSimilar(ctx context.Context, query string) (string, error) {
	stored, err := s.opt.Cache.ListAdvice(ctx)
	if err != nil {
		return "", err
	}

	var (
		best      *models.Advice
		bestScore int
	)
	for _, a := range stored {
		score := similarity(query, a.QueryText)
		if score > bestScore {
			best, bestScore = a, score
		}
	}

	if best != nil && bestScore >= s.opt.Threshold {
		return best.ResponseText, nil
	}
	return "", nil
}

// similarity scores two strings 0-100 from their Levenshtein distance.
func similarity(a, b string) int {
	dist := fuzzy.LevenshteinDistance(strings.ToLower(a), strings.ToLower(b))
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	score := 100 - (100*dist)/longest
	if score < 0 {
		return 0
	}
	return score
}
