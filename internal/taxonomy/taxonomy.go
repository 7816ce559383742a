// Package taxonomy defines the memory category/subtype table and the
// intent-based retrieval weight profiles.
package taxonomy

import "fmt"

// Memory categories.
const (
	Episodic   = "episodic"
	Semantic   = "semantic"
	Procedural = "procedural"
	Preference = "preference"
)

// Subtypes holds the valid subtypes per category. The pairing is fixed:
// a subtype is only valid under its own category.
var Subtypes = map[string][]string{
	Episodic:   {"event", "decision", "conversation", "outcome"},
	Semantic:   {"user", "project", "environment", "domain", "entity"},
	Procedural: {"workflow", "pattern", "tool_usage", "debugging"},
	Preference: {"communication", "style", "tools", "boundaries"},
}

// ValidationError reports an invalid category/subtype pairing.
type ValidationError struct {
	Category string
	Subtype  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subtype %q for category %q", e.Subtype, e.Category)
}

// ValidateSubtype checks that subtype belongs to category.
func ValidateSubtype(category, subtype string) error {
	for _, s := range Subtypes[category] {
		if s == subtype {
			return nil
		}
	}
	return &ValidationError{Category: category, Subtype: subtype}
}

// WeightKeyWorking is the weight entry key for the working memory phase.
// All other keys are "category.subtype".
const WeightKeyWorking = "working_memory"

// Weight is one entry of a retrieval profile.
type Weight struct {
	Key      string
	Fraction float64
}

// Query intents.
const (
	IntentHowTo        = "how_to"
	IntentWhatHappened = "what_happened"
	IntentWhatIs       = "what_is"
	IntentDebug        = "debug"
	IntentGeneral      = "general"
)

// ValidIntents are the recognized query intents.
var ValidIntents = map[string]bool{
	IntentHowTo:        true,
	IntentWhatHappened: true,
	IntentWhatIs:       true,
	IntentDebug:        true,
	IntentGeneral:      true,
}

// intentWeights maps intent to an ordered retrieval profile. Order matters:
// context assembly iterates entries in this order, so profiles are slices
// rather than maps.
var intentWeights = map[string][]Weight{
	IntentHowTo: {
		{WeightKeyWorking, 0.25},
		{"procedural.workflow", 0.25},
		{"procedural.pattern", 0.15},
		{"semantic.project", 0.15},
		{"semantic.entity", 0.10},
		{"preference.style", 0.05},
		{"episodic.decision", 0.05},
	},
	IntentWhatHappened: {
		{WeightKeyWorking, 0.20},
		{"episodic.decision", 0.30},
		{"episodic.event", 0.20},
		{"episodic.outcome", 0.15},
		{"semantic.project", 0.10},
		{"episodic.conversation", 0.05},
	},
	IntentWhatIs: {
		{WeightKeyWorking, 0.20},
		{"semantic.entity", 0.30},
		{"semantic.project", 0.20},
		{"semantic.domain", 0.15},
		{"semantic.environment", 0.10},
		{"episodic.decision", 0.05},
	},
	IntentDebug: {
		{WeightKeyWorking, 0.30},
		{"procedural.debugging", 0.25},
		{"episodic.outcome", 0.20},
		{"semantic.environment", 0.10},
		{"semantic.entity", 0.10},
		{"preference.tools", 0.05},
	},
	IntentGeneral: {
		{WeightKeyWorking, 0.35},
		{"semantic.project", 0.15},
		{"episodic.decision", 0.15},
		{"semantic.entity", 0.10},
		{"procedural.workflow", 0.10},
		{"preference.communication", 0.10},
		{"semantic.user", 0.05},
	},
}

// RetrievalWeights returns the weight profile for an intent. Unknown or
// empty intents fall back to the general profile.
func RetrievalWeights(intent string) []Weight {
	if w, ok := intentWeights[intent]; ok {
		return w
	}
	return intentWeights[IntentGeneral]
}

// WorkingFraction returns the working_memory fraction of a profile, or 0.
func WorkingFraction(weights []Weight) float64 {
	for _, w := range weights {
		if w.Key == WeightKeyWorking {
			return w.Fraction
		}
	}
	return 0
}
