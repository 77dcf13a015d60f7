package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDecodeLegacyPatientNormalizes(t *testing.T) {
	dob := time.Date(1954, 5, 9, 0, 0, 0, 0, time.UTC)
	row := []any{int64(51), "TEST1234567", "Marge", "Simpson", dob, "Female", "3", nil}

	rec, err := DecodeLegacyPatient(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := PatientRecord{
		LegacyID:    51,
		RAMQ:        "TEST1234567",
		FirstName:   "Marge",
		LastName:    "Simpson",
		BirthDate:   "1954-05-09",
		Sex:         "F",
		AccessLevel: "ALL",
		DeathDate:   "",
	}
	if rec != want {
		t.Errorf("got %+v, want %+v", rec, want)
	}
}

func TestDecodeReferencePatientKeepsStoredCodes(t *testing.T) {
	dob := time.Date(1954, 5, 9, 0, 0, 0, 0, time.UTC)
	row := []any{int64(51), "TEST1234567", "Marge", "Simpson", dob, "f", "ALL", nil}

	rec, err := DecodeReferencePatient(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Sex != "F" {
		t.Errorf("sex = %q, want F", rec.Sex)
	}
	if rec.AccessLevel != "ALL" {
		t.Errorf("access level = %q, want ALL", rec.AccessLevel)
	}
}

// Equivalent rows from the two stores must decode to identical records so
// the comparator sees them as matched.
func TestPatientDecodesAgree(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(2023, 12, 31, 8, 0, 0, 0, time.UTC)

	legacy, err := DecodeLegacyPatient([]any{int64(9), "R1", "Homer", "Simpson", dob, "MALE", "1", death})
	if err != nil {
		t.Fatalf("legacy decode: %v", err)
	}
	reference, err := DecodeReferencePatient([]any{int64(9), "R1", "Homer", "Simpson", dob, "M", "NTK", death})
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}
	if legacy != reference {
		t.Errorf("decodes disagree:\nlegacy:    %+v\nreference: %+v", legacy, reference)
	}
}

func TestDecodePatientArityMismatch(t *testing.T) {
	if _, err := DecodeLegacyPatient([]any{int64(1), "R1"}); err == nil {
		t.Error("expected arity error")
	}
}

func TestPatientRecordString(t *testing.T) {
	rec := PatientRecord{LegacyID: 1, RAMQ: "R", FirstName: "A", LastName: "B", BirthDate: "1990-01-01", Sex: "M", AccessLevel: "ALL"}
	got := rec.String()
	if got != "(1, R, A, B, 1990-01-01, M, ALL, )" {
		t.Errorf("canonical form = %q", got)
	}
}

func TestNewPatientsCheckAllowedIDs(t *testing.T) {
	refRows := &fakeRows{}
	legRows := &fakeRows{}
	ref := &fakeQuerier{responses: []*fakeRows{refRows}}
	leg := &fakeQuerier{responses: []*fakeRows{legRows}}

	c := NewPatientsCheck([]int64{51, 52})
	if err := c.Extract(context.Background(), Source{Name: "reference", DB: ref}, Source{Name: "legacy", DB: leg}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(ref.queries[0], "ANY($1)") || len(ref.args[0]) != 1 {
		t.Errorf("reference query not restricted: %q %v", ref.queries[0], ref.args[0])
	}
	if !strings.Contains(leg.queries[0], "ANY($1)") || len(leg.args[0]) != 1 {
		t.Errorf("legacy query not restricted: %q %v", leg.queries[0], leg.args[0])
	}
}

func TestDecodeHospitalPatient(t *testing.T) {
	rec, err := DecodeHospitalPatient([]any{int64(51), "rvh", "9999996", int64(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := HospitalPatientRecord{LegacyID: 51, SiteCode: "RVH", MRN: "9999996", IsActive: true}
	if rec != want {
		t.Errorf("got %+v, want %+v", rec, want)
	}

	// reference side stores a real boolean
	rec, err = DecodeHospitalPatient([]any{int64(51), "RVH", "9999996", true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != want {
		t.Errorf("boolean flag decode differs: %+v", rec)
	}
}

func TestDecodeCaregiverFoldsCase(t *testing.T) {
	rec, err := DecodeCaregiver([]any{int64(3), "Lisa", "Simpson", "5145551234", "Lisa@Example.com", "FR", "lisa-user"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Email != "lisa@example.com" || rec.Language != "fr" {
		t.Errorf("case folding missing: %+v", rec)
	}
}
