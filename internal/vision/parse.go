package vision

import (
	"encoding/json"
	"errors"
	"strings"
)

var errEmptyAnswer = errors.New("empty answer")

// parseLabels accepts either a JSON array of strings or a comma/newline
// separated list, optionally wrapped in a markdown code fence. Labels are
// trimmed, bullet markers removed and duplicates dropped case-insensitively.
func parseLabels(text string) []string {
	text = stripCodeFence(text)

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		raw = strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == '\n'
		})
	}

	labels := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, label := range raw {
		label = strings.TrimSpace(label)
		label = strings.TrimLeft(label, "-*• ")
		label = strings.Trim(label, "\"'` .")
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

type stepJudgment struct {
	Complete bool   `json:"complete"`
	Feedback string `json:"feedback"`
}

// parseStepJudgment reads {"complete": bool, "feedback": "..."}. When the
// model answers in prose instead, a leading yes/no decides completion and
// the whole answer becomes the feedback.
func parseStepJudgment(text string) (stepJudgment, error) {
	text = stripCodeFence(text)
	if text == "" {
		return stepJudgment{}, errEmptyAnswer
	}

	var judgment stepJudgment
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &judgment); err == nil {
			judgment.Feedback = strings.TrimSpace(judgment.Feedback)
			return judgment, nil
		}
	}

	lower := strings.ToLower(text)
	return stepJudgment{
		Complete: strings.HasPrefix(lower, "yes"),
		Feedback: text,
	}, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
