package reconcile

import "fmt"

const referenceHospitalPatientQuery = `
	SELECT
		pp.legacy_id,
		hss.code,
		php.mrn,
		php.is_active
	FROM patients_hospitalpatient php
	LEFT JOIN patients_patient pp ON php.patient_id = pp.id
	LEFT JOIN hospital_settings_site hss ON php.site_id = hss.id`

const legacyHospitalPatientQuery = `
	SELECT
		phi."PatientSerNum",
		phi."Hospital_Identifier_Type_Code",
		phi."MRN",
		phi."Is_Active"
	FROM "Patient_Hospital_Identifier" phi`

// HospitalPatientRecord is one hospital identifier (MRN at a site) for a
// patient, as projected from either store.
type HospitalPatientRecord struct {
	LegacyID int64
	SiteCode string
	MRN      string
	IsActive bool
}

func (h HospitalPatientRecord) String() string {
	return fmt.Sprintf("(%d, %s, %s, %t)", h.LegacyID, h.SiteCode, h.MRN, h.IsActive)
}

// DecodeHospitalPatient decodes one hospital-identifier row. The projection
// is identical on both sides: site codes are upper-cased and the active flag
// is coerced from either a boolean or a legacy tinyint.
func DecodeHospitalPatient(row []any) (HospitalPatientRecord, error) {
	if len(row) != 4 {
		return HospitalPatientRecord{}, fmt.Errorf("hospital patient row has %d columns, want 4", len(row))
	}
	legacyID, err := Int64(row[0])
	if err != nil {
		return HospitalPatientRecord{}, err
	}
	active, err := Bool(row[3])
	if err != nil {
		return HospitalPatientRecord{}, err
	}
	return HospitalPatientRecord{
		LegacyID: legacyID,
		SiteCode: UpperText(row[1]),
		MRN:      Text(row[2]),
		IsActive: active,
	}, nil
}

// NewHospitalPatientsCheck builds the hospital-identifier comparison.
func NewHospitalPatientsCheck() Check {
	return NewCheck(Spec[HospitalPatientRecord]{
		Entity:          "hospital_patients",
		ReferenceLabel:  "opal.patients_hospitalpatient",
		LegacyLabel:     "OpalDB.Patient_Hospital_Identifier",
		ReferenceQuery:  referenceHospitalPatientQuery,
		LegacyQuery:     legacyHospitalPatientQuery,
		DecodeReference: DecodeHospitalPatient,
		DecodeLegacy:    DecodeHospitalPatient,
	})
}
