package validator

import "testing"

type runInput struct {
	Identifiers []string `validate:"max=3,dive,profileid"`
}

func TestProfileIdentifierRule(t *testing.T) {
	v := New()
	if err := v.Struct(runInput{Identifiers: []string{"alice-smith", "%E4%BA%8C", "ACoAAB123"}}); err != nil {
		t.Fatalf("expected valid identifiers, got %v", err)
	}
	if err := v.Struct(runInput{Identifiers: []string{"in/alice smith"}}); err == nil {
		t.Fatalf("expected whitespace and slash to be rejected")
	}
}
