package domain

import (
	"testing"
	"time"
)

func TestOutcomeKindSeverityOrder(t *testing.T) {
	order := []OutcomeKind{OutcomeSuccess, OutcomeFailure, OutcomeTimeout, OutcomeError}
	for i := 1; i < len(order); i++ {
		if order[i].Severity() <= order[i-1].Severity() {
			t.Fatalf("%s should be more severe than %s", order[i], order[i-1])
		}
	}
}

func TestOutcomeKindFailed(t *testing.T) {
	if OutcomeSuccess.Failed() {
		t.Fatal("success is not a failure")
	}
	for _, k := range []OutcomeKind{OutcomeFailure, OutcomeTimeout, OutcomeError} {
		if !k.Failed() {
			t.Fatalf("%s should count as failed", k)
		}
	}
}

func TestImpactFor(t *testing.T) {
	if got := ImpactFor(OutcomeError); got != ImpactMajor {
		t.Fatalf("error should map to major, got %s", got)
	}
	// Timeout and failure are deliberately equal in impact.
	if got := ImpactFor(OutcomeTimeout); got != ImpactMinor {
		t.Fatalf("timeout should map to minor, got %s", got)
	}
	if got := ImpactFor(OutcomeFailure); got != ImpactMinor {
		t.Fatalf("failure should map to minor, got %s", got)
	}
}

func TestIncidentResolved(t *testing.T) {
	now := time.Now().UTC()
	inc := Incident{Status: IncidentInvestigating}
	if inc.Resolved() {
		t.Fatal("investigating incident is not resolved")
	}
	inc.Status = IncidentResolved
	inc.ResolvedAt = &now
	if !inc.Resolved() {
		t.Fatal("resolved incident should report resolved")
	}
}
