package taxonomy

import (
	"errors"
	"testing"
)

func TestValidateSubtype(t *testing.T) {
	if err := ValidateSubtype("semantic", "entity"); err != nil {
		t.Errorf("semantic/entity should be valid: %v", err)
	}
	if err := ValidateSubtype("procedural", "workflow"); err != nil {
		t.Errorf("procedural/workflow should be valid: %v", err)
	}

	// Cross-category subtype must be rejected
	err := ValidateSubtype("semantic", "workflow")
	if err == nil {
		t.Fatal("expected error for semantic/workflow")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %T", err)
	}

	if ValidateSubtype("nonsense", "entity") == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRetrievalWeightsFallback(t *testing.T) {
	general := RetrievalWeights("general")
	unknown := RetrievalWeights("unknown_intent")

	if len(unknown) != len(general) {
		t.Fatalf("fallback length mismatch: %d vs %d", len(unknown), len(general))
	}
	for i := range general {
		if unknown[i] != general[i] {
			t.Errorf("entry %d differs: %v vs %v", i, unknown[i], general[i])
		}
	}
}

func TestRetrievalWeightsDebug(t *testing.T) {
	w := RetrievalWeights("debug")
	if got := WorkingFraction(w); got != 0.30 {
		t.Errorf("debug working_memory fraction = %v, want 0.30", got)
	}
	if w[1].Key != "procedural.debugging" || w[1].Fraction != 0.25 {
		t.Errorf("debug second entry = %v", w[1])
	}
}

func TestProfileKeysAreValidTypes(t *testing.T) {
	for intent := range ValidIntents {
		for _, w := range RetrievalWeights(intent) {
			if w.Key == WeightKeyWorking {
				continue
			}
			cat, sub, ok := splitKey(w.Key)
			if !ok {
				t.Fatalf("%s: malformed key %q", intent, w.Key)
			}
			if err := ValidateSubtype(cat, sub); err != nil {
				t.Errorf("%s: %v", intent, err)
			}
		}
	}
}

func splitKey(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
