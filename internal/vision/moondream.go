package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/edita-ar/apiserver/config"
	"github.com/edita-ar/apiserver/types"
)

const (
	moondreamAuthHeader = "X-Moondream-Auth"
	detectQuestion      = "List the items in this image, ignoring insignificant items like connecting wires and screws. " +
		"Be as specific as possible and answer with a comma separated list."
	maxErrorBody = 4 << 10
)

// MoondreamClient talks to a Moondream station or the hosted API.
type MoondreamClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewMoondreamClient constructs a Moondream client. A nil httpClient uses
// http.DefaultClient.
func NewMoondreamClient(cfg config.MoondreamConfig, httpClient *http.Client) (*MoondreamClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("moondream endpoint is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MoondreamClient{endpoint: endpoint, apiKey: cfg.APIKey, http: httpClient}, nil
}

func (m *MoondreamClient) Name() string {
	return "moondream"
}

type moondreamQueryRequest struct {
	ImageURL string `json:"image_url"`
	Question string `json:"question"`
	Stream   bool   `json:"stream"`
}

type moondreamQueryResponse struct {
	Answer string `json:"answer"`
}

func (m *MoondreamClient) Detect(ctx context.Context, img Image) ([]string, error) {
	var resp moondreamQueryResponse
	err := m.post(ctx, "/query", moondreamQueryRequest{
		ImageURL: img.DataURL(),
		Question: detectQuestion,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return parseLabels(resp.Answer), nil
}

type moondreamPointRequest struct {
	ImageURL string `json:"image_url"`
	Object   string `json:"object"`
}

type moondreamPointResponse struct {
	Points []types.Point `json:"points"`
}

// AnalyzeStep points at the target object; the step counts as complete when
// the object is found at least once.
func (m *MoondreamClient) AnalyzeStep(ctx context.Context, img Image, target string) (types.StepFeedback, error) {
	var resp moondreamPointResponse
	err := m.post(ctx, "/point", moondreamPointRequest{
		ImageURL: img.DataURL(),
		Object:   target,
	}, &resp)
	if err != nil {
		return types.StepFeedback{}, err
	}

	feedback := types.StepFeedback{Target: target, Points: resp.Points}
	if len(resp.Points) > 0 {
		feedback.Complete = true
		feedback.Feedback = fmt.Sprintf("Found %s in the frame.", target)
	} else {
		feedback.Feedback = fmt.Sprintf("Could not find %s yet. Keep the part in view and try again.", target)
	}
	return feedback, nil
}

func (m *MoondreamClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set(moondreamAuthHeader, m.apiKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("moondream %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("moondream %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("moondream %s: decode response: %w", path, err)
	}
	return nil
}
