package reconcile

import (
	"context"
	"fmt"
)

// The questionnaire database denormalizes the respondent's display name onto
// each answered questionnaire. When a caregiver renames themselves the
// denormalized copy goes stale, so the respondent check compares the
// distinct (username, display name) pairs recorded on answered
// questionnaires against the caregiver names in the reference store. The
// reference side is restricted to usernames that actually answered a
// questionnaire; caregivers who never responded have nothing to be out of
// sync with.
const legacyRespondentQuery = `
	SELECT DISTINCT
		aq."respondentUsername",
		aq."respondentDisplayName"
	FROM "answerQuestionnaire" aq
	WHERE aq."respondentUsername" <> ''`

const referenceRespondentQuery = `
	SELECT DISTINCT
		uu.username,
		uu.first_name || ' ' || uu.last_name
	FROM users_user uu
	WHERE uu.username = ANY($1)`

// RespondentRecord is one questionnaire respondent identity.
type RespondentRecord struct {
	Username    string
	DisplayName string
}

func (r RespondentRecord) String() string {
	return fmt.Sprintf("(%s, %s)", r.Username, r.DisplayName)
}

// DecodeRespondent decodes one respondent row; the projection is shared by
// both sides.
func DecodeRespondent(row []any) (RespondentRecord, error) {
	if len(row) != 2 {
		return RespondentRecord{}, fmt.Errorf("respondent row has %d columns, want 2", len(row))
	}
	return RespondentRecord{
		Username:    Text(row[0]),
		DisplayName: Text(row[1]),
	}, nil
}

type respondentsCheck struct {
	left  []RespondentRecord
	right []RespondentRecord
}

// NewRespondentsCheck builds the questionnaire respondent name sync check.
func NewRespondentsCheck() Check {
	return &respondentsCheck{}
}

func (c *respondentsCheck) Entity() string {
	return "questionnaire_respondents"
}

// Extract reads the legacy side first: the distinct respondent usernames
// found there parametrize the reference query as its allowed identifiers.
func (c *respondentsCheck) Extract(ctx context.Context, reference, legacy Source) error {
	right, err := Extract(ctx, legacy, legacyRespondentQuery, DecodeRespondent)
	if err != nil {
		return fmt.Errorf("extract questionnaire_respondents: %w", err)
	}

	usernames := make([]string, 0, len(right))
	for _, rec := range right {
		usernames = append(usernames, rec.Username)
	}

	left, err := Extract(ctx, reference, referenceRespondentQuery, DecodeRespondent, usernames)
	if err != nil {
		return fmt.Errorf("extract questionnaire_respondents: %w", err)
	}

	c.left = left
	c.right = right
	return nil
}

func (c *respondentsCheck) Compare() EntityResult {
	return EntityResult{
		Entity:         c.Entity(),
		ReferenceLabel: "opal.users_user",
		LegacyLabel:    "QuestionnaireDB.answerQuestionnaire",
		Result:         Compare(c.left, c.right),
	}
}
