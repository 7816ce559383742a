package classify

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/taxonomy"
)

const classifySystemPrompt = `You are a memory classification system. Analyze the given content and classify it for storage in a long-term memory system.

Return ONLY valid JSON with these fields:
- memory_category: one of 'episodic', 'semantic', 'procedural', 'preference'
- memory_subtype:
  - For episodic: 'event', 'decision', 'conversation', 'outcome'
  - For semantic: 'user', 'project', 'environment', 'domain', 'entity'
  - For procedural: 'workflow', 'pattern', 'tool_usage', 'debugging'
  - For preference: 'communication', 'style', 'tools', 'boundaries'
- importance: float 0.0 to 1.0 (how likely to be needed again)
- entities: array of named entities in format "type:name" (e.g., "database:prod_db", "table:users", "file:api.py")
- is_temporal: boolean (is this time-sensitive information?)
- summary: optional shorter version (only if content is long)`

const intentSystemPrompt = `Classify the query intent. Return ONLY one of these words:
- how_to: asking how to do something
- what_happened: asking about past events/decisions
- what_is: asking for facts/information
- debug: asking for help with an error/problem
- general: other/unclear

Return only the classification word, nothing else.`

const entitySystemPrompt = `Extract named entities from the content. Return a JSON array of strings in the format "type:name".

Entity types to look for:
- database: database names
- table: table/collection names
- field: column/field names
- file: file paths
- function: function/method names
- class: class names
- api: API endpoints
- service: service names
- person: people's names
- tool: tools/frameworks
- concept: technical concepts

Return ONLY a JSON array, no explanation.`

const questionsSystemPrompt = `Generate 3-5 short questions that someone might ask which this content would answer.
These questions help with semantic search retrieval.

Return ONLY a JSON array of question strings, nothing else.
Keep questions short and natural.

Examples for "Jon lives in Washington state":
["Where does Jon live?", "What state is Jon in?", "Jon's location?"]`

const summarizeSystemPrompt = `You are a precise summarization assistant.
Your ONLY job is to summarize the text given to you.
Return ONLY JSON in this exact format: {"summary": "your summary here"}
Do NOT include anything else. Do NOT make up content. Do NOT add questions or code.`

// extractJSONObject finds and unmarshals the first {...} span in text.
func extractJSONObject(text string, out any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), out) == nil
}

// extractJSONArray finds and unmarshals the first [...] span in text.
func extractJSONArray(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	var items []string
	if json.Unmarshal([]byte(text[start:end+1]), &items) != nil {
		return nil
	}
	return items
}

func parseClassification(resp string) model.Classification {
	raw := struct {
		Category   string   `json:"memory_category"`
		Subtype    string   `json:"memory_subtype"`
		Importance float64  `json:"importance"`
		Entities   []string `json:"entities"`
		IsTemporal bool     `json:"is_temporal"`
		Summary    string   `json:"summary"`
	}{
		Category:   taxonomy.Semantic,
		Subtype:    "domain",
		Importance: 0.5,
	}
	extractJSONObject(resp, &raw)

	return model.Classification{
		Category:   raw.Category,
		Subtype:    raw.Subtype,
		Importance: raw.Importance,
		Entities:   raw.Entities,
		IsTemporal: raw.IsTemporal,
		Summary:    raw.Summary,
	}
}

func parseSummary(resp string) string {
	var out struct {
		Summary string `json:"summary"`
	}
	extractJSONObject(resp, &out)
	return out.Summary
}

func itoa(n int) string { return strconv.Itoa(n) }
