package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edita-ar/apiserver/config"
	"github.com/edita-ar/apiserver/types"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	detectPrompt = "List the items in this image. Ignore insignificant items like connecting wires and screws. " +
		"Be as specific as possible. Answer with a JSON array of strings and nothing else."

	stepPromptFormat = "The user is working through a build and the current step is: %q. " +
		"Look at the image and decide whether this step has been completed. " +
		"Answer with a JSON object {\"complete\": true|false, \"feedback\": \"one short sentence for the user\"} and nothing else."
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	models *genai.Models
	model  string
}

// NewGeminiClient constructs a Gemini client from config. A nil httpClient
// uses the SDK default.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, httpClient *http.Client) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiClient{models: client.Models, model: model}, nil
}

func (g *GeminiClient) Name() string {
	return "gemini"
}

func (g *GeminiClient) Detect(ctx context.Context, img Image) ([]string, error) {
	text, err := g.generate(ctx, detectPrompt, img)
	if err != nil {
		return nil, err
	}
	return parseLabels(text), nil
}

func (g *GeminiClient) AnalyzeStep(ctx context.Context, img Image, target string) (types.StepFeedback, error) {
	text, err := g.generate(ctx, fmt.Sprintf(stepPromptFormat, target), img)
	if err != nil {
		return types.StepFeedback{}, err
	}
	judgment, err := parseStepJudgment(text)
	if err != nil {
		return types.StepFeedback{}, fmt.Errorf("gemini step judgment: %w", err)
	}
	return types.StepFeedback{
		Target:   target,
		Complete: judgment.Complete,
		Feedback: judgment.Feedback,
	}, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, img Image) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(img.Data, img.MimeType),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("gemini returned no text")
	}
	return sb.String(), nil
}
