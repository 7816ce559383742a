package classify

import (
	"context"
	"testing"
)

// scriptedChat returns canned responses for testing the parsing layer.
type scriptedChat struct {
	response string
}

func (s *scriptedChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.response, nil
}

func TestNormalizeIntent(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"how_to", "how_to"},
		{"  HOW_TO  ", "how_to"},
		{`"what_happened"`, "what_happened"},
		{"something happened here", "what_happened"},
		{"what is", "what_is"},
		{"debug", "debug"},
		{"debugging the issue", "debug"},
		{"general", "general"},
		{"banana", "general"},
		{"", "general"},
	}
	for _, c := range cases {
		if got := NormalizeIntent(c.raw); got != c.want {
			t.Errorf("NormalizeIntent(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestClassifyParsesJSON(t *testing.T) {
	chat := &scriptedChat{response: `Here you go:
{"memory_category": "procedural", "memory_subtype": "debugging",
 "importance": 0.8, "entities": ["tool:pytest"], "is_temporal": false}`}
	c := New(chat)

	cls, err := c.Classify(context.Background(), "run pytest -x to stop on first failure", "")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if cls.Category != "procedural" || cls.Subtype != "debugging" {
		t.Errorf("got %s.%s", cls.Category, cls.Subtype)
	}
	if cls.Importance != 0.8 {
		t.Errorf("importance = %v", cls.Importance)
	}
	if len(cls.Entities) != 1 || cls.Entities[0] != "tool:pytest" {
		t.Errorf("entities = %v", cls.Entities)
	}
}

func TestClassifyInvalidPairingFallsBack(t *testing.T) {
	chat := &scriptedChat{response: `{"memory_category": "semantic", "memory_subtype": "workflow", "importance": 0.9}`}
	c := New(chat)

	cls, err := c.Classify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if cls.Category != "semantic" || cls.Subtype != "domain" {
		t.Errorf("expected semantic.domain fallback, got %s.%s", cls.Category, cls.Subtype)
	}
}

func TestClassifyGarbageResponseUsesDefaults(t *testing.T) {
	c := New(&scriptedChat{response: "I cannot classify this."})

	cls, err := c.Classify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if cls.Category != "semantic" || cls.Subtype != "domain" || cls.Importance != 0.5 {
		t.Errorf("defaults not applied: %+v", cls)
	}
}

func TestHypotheticalQuestionsFiltered(t *testing.T) {
	chat := &scriptedChat{response: `["Where does Jon live?", "What state?", "` +
		"this is a very long non-question string that rambles on well past any reasonable length for a retrieval question and should be dropped entirely" +
		`", "Q4?", "Q5?", "Q6?", "Q7?"]`}
	c := New(chat)

	qs, err := c.HypotheticalQuestions(context.Background(), "Jon lives in Washington state")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("expected 5 questions (cap), got %d: %v", len(qs), qs)
	}
	for _, q := range qs {
		if len(q) >= 100 {
			t.Errorf("overlong question not filtered: %q", q)
		}
	}
}

func TestSummarizeFallsBackToTruncation(t *testing.T) {
	c := New(&scriptedChat{response: "no json here"})

	long := ""
	for i := 0; i < 30; i++ {
		long += "the deploy pipeline builds and pushes images "
	}
	sum, err := c.Summarize(context.Background(), long, 50)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(sum) > 210 {
		t.Errorf("fallback summary too long: %d chars", len(sum))
	}
	if sum == "" {
		t.Error("expected non-empty fallback summary")
	}
}
