package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// AIService is the direct Gemini path, used when the Plant Guardian backend
// cannot be reached. The backend itself proxies Gemini for the same jobs, so
// the answers stay consistent between the two paths.
type AIService struct {
	client *genai.Client
}

// PlantAnalysisResult is the raw shape Gemini is instructed to return for a
// plant photo.
type PlantAnalysisResult struct {
	PlantName   string  `json:"plant_name"`
	DiseaseName string  `json:"disease_name"`
	Confidence  float64 `json:"confidence"`
	Details     struct {
		Description string `json:"description"`
		Prevention  string `json:"prevention"`
		Treatment   string `json:"treatment"`
	} `json:"details"`
}

func NewAIService(ctx context.Context, geminiAPIKey string) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(geminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &AIService{client: client}, nil
}

// AnalyzePlantImage asks Gemini to identify the plant and any disease in the
// image.
func (s *AIService) AnalyzePlantImage(ctx context.Context, imageData []byte) (*PlantAnalysisResult, error) {
	model := s.client.GenerativeModel(geminiModel)

	prompt := `You are an expert plant pathologist. Analyze the plant in the image and identify any disease.

TASK:
1. Identify the plant species
2. Identify the disease, or "Healthy" if the plant shows no symptoms
3. Assess your confidence as a number between 0 and 1
4. Describe the symptoms, prevention measures and a treatment

CRITICAL JSON FORMAT REQUIREMENTS:
- Your response MUST be a valid JSON object
- Do not include any markdown formatting or explanatory text around the JSON
- The JSON must have these exact fields:
  {
    "plant_name": "Tomato",
    "disease_name": "Early Blight",
    "confidence": 0.87,
    "details": {
      "description": "symptoms you can see",
      "prevention": "how to prevent it",
      "treatment": "how to treat it"
    }
  }`

	img := genai.ImageData("image/jpeg", imageData)
	resp, err := model.GenerateContent(ctx, img, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	responseText, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	jsonStr := extractJSON(responseText)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	var result PlantAnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// Ask forwards a free-text gardening question to Gemini and returns the
// markdown answer.
func (s *AIService) Ask(ctx context.Context, query string) (string, error) {
	model := s.client.GenerativeModel(geminiModel)

	prompt := fmt.Sprintf(`You are a friendly gardening assistant. Answer the question below concisely in markdown.

Question: %s`, query)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return firstText(resp)
}

// Close releases the underlying Gemini client.
func (s *AIService) Close() error {
	return s.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part from Gemini")
	}
	return string(text), nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
