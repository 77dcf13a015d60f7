package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRespondentsCheckFeedsLegacyUsernamesToReference(t *testing.T) {
	legRows := &fakeRows{rows: [][]any{
		{"marge", "Marge Simpson"},
		{"homer", "Homer Simpson"},
	}}
	refRows := &fakeRows{rows: [][]any{
		{"marge", "Marge Simpson"},
		{"homer", "Homer J Simpson"},
	}}
	ref := &fakeQuerier{responses: []*fakeRows{refRows}}
	leg := &fakeQuerier{responses: []*fakeRows{legRows}}

	c := NewRespondentsCheck()
	if err := c.Extract(context.Background(), Source{Name: "reference", DB: ref}, Source{Name: "legacy", DB: leg}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ref.args) != 1 || len(ref.args[0]) != 1 {
		t.Fatalf("reference query missing username restriction: %v", ref.args)
	}
	usernames, ok := ref.args[0][0].([]string)
	if !ok || len(usernames) != 2 {
		t.Fatalf("expected two allowed usernames, got %v", ref.args[0][0])
	}

	res := c.Compare()
	if res.Result.Clean() {
		t.Fatal("stale display name should be a deviation")
	}
	joined := strings.Join(res.Result.Unmatched, "\n")
	if !strings.Contains(joined, "Homer Simpson") || !strings.Contains(joined, "Homer J Simpson") {
		t.Errorf("both stale name variants should be unmatched:\n%s", joined)
	}
	if strings.Contains(joined, "Marge") {
		t.Errorf("matched respondent leaked into unmatched set:\n%s", joined)
	}
}

func TestRespondentsCheckLegacyFailureSkipsReference(t *testing.T) {
	ref := &fakeQuerier{}
	leg := &fakeQuerier{queryErr: errors.New("table missing")}

	c := NewRespondentsCheck()
	err := c.Extract(context.Background(), Source{Name: "reference", DB: ref}, Source{Name: "legacy", DB: leg})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ref.queries) != 0 {
		t.Error("reference source queried despite legacy failure")
	}
}

func TestDecodeRespondent(t *testing.T) {
	rec, err := DecodeRespondent([]any{"marge", "Marge Simpson"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.String() != "(marge, Marge Simpson)" {
		t.Errorf("canonical form = %q", rec.String())
	}
	if _, err := DecodeRespondent([]any{"only-one"}); err == nil {
		t.Error("expected arity error")
	}
}
