package services

import (
	"context"
	"strings"

	"github.com/plantguardian/garden-helper/internal/api"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/logger"
)

// websiteShortcut maps a spoken keyword to a site the assistant can open
// directly, skipping the Q&A round trip. Checked in order; first match wins.
type websiteShortcut struct {
	keyword string
	label   string
	url     string
}

var websiteShortcuts = []websiteShortcut{
	{"youtube", "YouTube", "https://www.youtube.com"},
	{"google", "Google", "https://www.google.com"},
	{"facebook", "Facebook", "https://www.facebook.com"},
	{"twitter", "Twitter", "https://www.twitter.com"},
	{"instagram", "Instagram", "https://www.instagram.com"},
	{"linkedin", "LinkedIn", "https://www.linkedin.com"},
	{"reddit", "Reddit", "https://www.reddit.com"},
	{"netflix", "Netflix", "https://www.netflix.com"},
	{"amazon", "Amazon", "https://www.amazon.com"},
	{"github", "GitHub", "https://www.github.com"},
	{"stackoverflow", "Stack Overflow", "https://stackoverflow.com"},
	{"wikipedia", "Wikipedia", "https://www.wikipedia.org"},
}

// AssistantService answers free-text questions. Website requests resolve to
// an open-this-URL answer locally; everything else goes to the backend Q&A
// endpoint, with a direct Gemini fallback when the backend is unreachable.
type AssistantService struct {
	client *api.Client
	ai     *AIService
}

func NewAssistantService(client *api.Client, ai *AIService) *AssistantService {
	return &AssistantService{client: client, ai: ai}
}

// Ask resolves a user query into an answer.
func (s *AssistantService) Ask(ctx context.Context, query string) (*domain.AssistantAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("Please type a question")
	}

	lower := strings.ToLower(query)
	for _, shortcut := range websiteShortcuts {
		if strings.Contains(lower, shortcut.keyword) {
			return &domain.AssistantAnswer{
				OpenURL: shortcut.url,
				Text:    "Opening " + shortcut.label,
			}, nil
		}
	}

	answer, err := s.client.Ask(ctx, query)
	if err != nil {
		if s.ai == nil || !fallbackWorthy(err) {
			return nil, err
		}
		logger.Warningf("Backend Q&A failed, falling back to Gemini: %v", err)
		answer, err = s.ai.Ask(ctx, query)
		if err != nil {
			return nil, apperrors.NewExternalAPIError(err, "Gemini")
		}
	}
	return &domain.AssistantAnswer{Text: answer}, nil
}
