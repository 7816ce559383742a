// Package classify provides content classification and query intent
// detection backed by a chat model.
package classify

import (
	"context"
	"strings"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/taxonomy"
)

// Classifier analyzes content for memory storage and queries for retrieval.
// All methods can fail on provider errors; callers apply their own safe
// defaults (classification failures are non-fatal everywhere except where a
// caller explicitly requires the verdict).
type Classifier interface {
	// Classify assigns content a category, subtype, importance, and entities.
	Classify(ctx context.Context, content, context_ string) (model.Classification, error)

	// DetectIntent classifies a query as one of the retrieval intents.
	DetectIntent(ctx context.Context, query string) (string, error)

	// ExtractEntities pulls "type:name" entities out of content.
	ExtractEntities(ctx context.Context, content string) ([]string, error)

	// HypotheticalQuestions generates up to 5 short questions the content
	// answers, used to augment the embedded text for retrieval.
	HypotheticalQuestions(ctx context.Context, content string) ([]string, error)

	// Summarize condenses content to at most maxWords words.
	Summarize(ctx context.Context, content string, maxWords int) (string, error)
}

// ChatModel is a minimal chat completion backend.
type ChatModel interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ModelClassifier implements Classifier on top of any ChatModel.
type ModelClassifier struct {
	chat ChatModel
}

// New creates a classifier backed by the given chat model.
func New(chat ChatModel) *ModelClassifier {
	return &ModelClassifier{chat: chat}
}

func (c *ModelClassifier) Classify(ctx context.Context, content, context_ string) (model.Classification, error) {
	if context_ == "" {
		context_ = "None provided"
	}
	prompt := "Content to classify:\n" + content + "\n\nAdditional context:\n" + context_ +
		"\n\nReturn JSON only, no explanation."

	resp, err := c.chat.Complete(ctx, classifySystemPrompt, prompt)
	if err != nil {
		return model.Classification{}, err
	}

	cls := parseClassification(resp)
	if err := taxonomy.ValidateSubtype(cls.Category, cls.Subtype); err != nil {
		// Model hallucinated a pairing; fall back to the default bucket.
		cls.Category = taxonomy.Semantic
		cls.Subtype = "domain"
	}
	return cls, nil
}

func (c *ModelClassifier) DetectIntent(ctx context.Context, query string) (string, error) {
	resp, err := c.chat.Complete(ctx, intentSystemPrompt, query)
	if err != nil {
		return "", err
	}
	return NormalizeIntent(resp), nil
}

func (c *ModelClassifier) ExtractEntities(ctx context.Context, content string) ([]string, error) {
	resp, err := c.chat.Complete(ctx, entitySystemPrompt, "Content:\n"+content)
	if err != nil {
		return nil, err
	}
	return extractJSONArray(resp), nil
}

func (c *ModelClassifier) HypotheticalQuestions(ctx context.Context, content string) ([]string, error) {
	prompt := "Content:\n" + content + "\n\nReturn JSON array of questions only:"
	resp, err := c.chat.Complete(ctx, questionsSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var valid []string
	for _, q := range extractJSONArray(resp) {
		if len(q) < 100 && (strings.Contains(q, "?") || len(strings.Fields(q)) < 8) {
			valid = append(valid, q)
		}
	}
	if len(valid) > 5 {
		valid = valid[:5]
	}
	return valid, nil
}

func (c *ModelClassifier) Summarize(ctx context.Context, content string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = 50
	}
	prompt := "Summarize this text in " + itoa(maxWords) + " words or less:\n\n\"" + content +
		"\"\n\nReturn JSON: {\"summary\": \"...\"}"

	resp, err := c.chat.Complete(ctx, summarizeSystemPrompt, prompt)
	if err != nil {
		return "", err
	}

	summary := parseSummary(resp)
	if summary == "" || len(summary) < 10 || strings.Contains(summary, "```") {
		summary = truncate(content, 200)
	}
	return summary, nil
}

// NormalizeIntent maps a raw model response to a valid intent label,
// falling back to general.
func NormalizeIntent(raw string) string {
	intent := strings.ToLower(strings.TrimSpace(raw))
	intent = strings.Trim(intent, `"'`)

	switch {
	case strings.Contains(intent, "how"):
		return taxonomy.IntentHowTo
	case strings.Contains(intent, "happened"):
		return taxonomy.IntentWhatHappened
	case strings.Contains(intent, "what_is") || strings.Contains(intent, "what is"):
		return taxonomy.IntentWhatIs
	case strings.Contains(intent, "debug"):
		return taxonomy.IntentDebug
	}
	if taxonomy.ValidIntents[intent] {
		return intent
	}
	return taxonomy.IntentGeneral
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
