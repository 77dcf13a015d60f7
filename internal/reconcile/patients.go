package reconcile

import "fmt"

// Only fully inserted patients take part in the comparison: on the reference
// side patients with a legacy id, on the legacy side patients with a
// PatientControl entry. Patients mid-registration exist in only one store by
// design and must not show up as deviations.
const referencePatientQuery = `
	SELECT
		pp.legacy_id,
		pp.ramq,
		pp.first_name,
		pp.last_name,
		pp.date_of_birth,
		pp.sex,
		pp.data_access,
		pp.date_of_death
	FROM patients_patient pp
	WHERE pp.legacy_id IS NOT NULL`

const legacyPatientQuery = `
	SELECT
		p."PatientSerNum",
		p."SSN",
		p."FirstName",
		p."LastName",
		p."DateOfBirth",
		p."Sex",
		p."AccessLevel",
		p."DeathDate"
	FROM "PatientControl" pc
	LEFT JOIN "Patient" p ON pc."PatientSerNum" = p."PatientSerNum"`

// PatientRecord is one patient as projected from either store, normalized to
// the shared canonical form.
type PatientRecord struct {
	LegacyID    int64
	RAMQ        string
	FirstName   string
	LastName    string
	BirthDate   string
	Sex         string
	AccessLevel string
	DeathDate   string
}

func (p PatientRecord) String() string {
	return fmt.Sprintf(
		"(%d, %s, %s, %s, %s, %s, %s, %s)",
		p.LegacyID, p.RAMQ, p.FirstName, p.LastName, p.BirthDate, p.Sex, p.AccessLevel, p.DeathDate,
	)
}

func decodePatient(row []any, sex func(string) string, access func(string) string) (PatientRecord, error) {
	if len(row) != 8 {
		return PatientRecord{}, fmt.Errorf("patient row has %d columns, want 8", len(row))
	}
	legacyID, err := Int64(row[0])
	if err != nil {
		return PatientRecord{}, err
	}
	return PatientRecord{
		LegacyID:    legacyID,
		RAMQ:        Text(row[1]),
		FirstName:   Text(row[2]),
		LastName:    Text(row[3]),
		BirthDate:   DateOnly(row[4]),
		Sex:         sex(Text(row[5])),
		AccessLevel: access(Text(row[6])),
		DeathDate:   DateOnly(row[7]),
	}, nil
}

// DecodeReferencePatient decodes one reference-store patient row. The
// reference store already stores canonical codes, so sex and data access are
// passed through with only upper-casing.
func DecodeReferencePatient(row []any) (PatientRecord, error) {
	return decodePatient(row, SexFromReference, func(s string) string { return s })
}

// DecodeLegacyPatient decodes one legacy-store patient row, mapping the
// legacy sex and access-level value spaces onto the canonical codes.
func DecodeLegacyPatient(row []any) (PatientRecord, error) {
	return decodePatient(row, SexFromLegacy, AccessLevelFromLegacy)
}

// NewPatientsCheck builds the patients comparison. When allowedIDs is
// non-empty the check is restricted to those legacy patient identifiers.
func NewPatientsCheck(allowedIDs []int64) Check {
	spec := Spec[PatientRecord]{
		Entity:          "patients",
		ReferenceLabel:  "opal.patients_patient",
		LegacyLabel:     `OpalDB.Patient(UserType="Patient")`,
		ReferenceQuery:  referencePatientQuery,
		LegacyQuery:     legacyPatientQuery,
		DecodeReference: DecodeReferencePatient,
		DecodeLegacy:    DecodeLegacyPatient,
	}
	if len(allowedIDs) > 0 {
		spec.ReferenceQuery += ` AND pp.legacy_id = ANY($1)`
		spec.ReferenceArgs = []any{allowedIDs}
		spec.LegacyQuery += ` WHERE pc."PatientSerNum" = ANY($1)`
		spec.LegacyArgs = []any{allowedIDs}
	}
	return NewCheck(spec)
}
