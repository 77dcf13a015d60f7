package reconcile

import "fmt"

// Caregiver comparison is restricted to fully registered caregivers: on the
// reference side profiles with a legacy id, on the legacy side users with a
// Users row. A caregiver mid-registration exists in only one store.
const referenceCaregiverQuery = `
	SELECT
		cc.legacy_id,
		uu.first_name,
		uu.last_name,
		uu.phone_number,
		uu.email,
		uu.language,
		uu.username
	FROM caregivers_caregiverprofile cc
	LEFT JOIN users_user uu ON cc.user_id = uu.id
	WHERE cc.legacy_id IS NOT NULL`

const legacyCaregiverQuery = `
	SELECT
		p."PatientSerNum",
		p."FirstName",
		p."LastName",
		CAST(p."TelNum" AS TEXT),
		p."Email",
		p."Language",
		u."Username"
	FROM "Users" u
	LEFT JOIN "Patient" p ON p."PatientSerNum" = u."UserTypeSerNum"`

// CaregiverRecord is one caregiver as projected from either store. Emails
// and language codes are case-folded; the legacy store is inconsistent about
// both.
type CaregiverRecord struct {
	LegacyID  int64
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Language  string
	Username  string
}

func (c CaregiverRecord) String() string {
	return fmt.Sprintf(
		"(%d, %s, %s, %s, %s, %s, %s)",
		c.LegacyID, c.FirstName, c.LastName, c.Phone, c.Email, c.Language, c.Username,
	)
}

// DecodeCaregiver decodes one caregiver row; the projection is shared by
// both sides.
func DecodeCaregiver(row []any) (CaregiverRecord, error) {
	if len(row) != 7 {
		return CaregiverRecord{}, fmt.Errorf("caregiver row has %d columns, want 7", len(row))
	}
	legacyID, err := Int64(row[0])
	if err != nil {
		return CaregiverRecord{}, err
	}
	return CaregiverRecord{
		LegacyID:  legacyID,
		FirstName: Text(row[1]),
		LastName:  Text(row[2]),
		Phone:     Text(row[3]),
		Email:     LowerText(row[4]),
		Language:  LowerText(row[5]),
		Username:  Text(row[6]),
	}, nil
}

// NewCaregiversCheck builds the caregivers comparison.
func NewCaregiversCheck() Check {
	return NewCheck(Spec[CaregiverRecord]{
		Entity:          "caregivers",
		ReferenceLabel:  "opal.caregivers_caregiverprofile",
		LegacyLabel:     `OpalDB.Patient(UserType="Caregiver")`,
		ReferenceQuery:  referenceCaregiverQuery,
		LegacyQuery:     legacyCaregiverQuery,
		DecodeReference: DecodeCaregiver,
		DecodeLegacy:    DecodeCaregiver,
	})
}
