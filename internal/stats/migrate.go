// Package stats migrates the legacy report store's daily usage-statistics
// rows into the reference store's usage-statistics tables. The migration is
// a one-shot batch: rows that cannot be resolved to a known patient are
// logged and skipped, never fatal.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const legacyActivityLogQuery = `
	SELECT
		"PatientSerNum",
		"Last_Login",
		"Count_Login",
		"Count_Checkin",
		"Count_Clinical_Notes",
		"Count_Educational_Material",
		"Count_Feedback",
		"Count_Questionnaire",
		"Count_LabResults",
		"Count_Update_Security_Answer",
		"Count_Update_Password",
		"Date_Added"
	FROM "rpt_patient_activity_log"`

const legacyDataReceivedLogQuery = `
	SELECT
		rpl."PatientSerNum",
		rpl."Next_Appointment",
		rpl."Last_Appointment_Received",
		rpl."Last_Clinical_Notes_Received",
		rpl."Last_Lab_Received",
		rpll."Count_Labs",
		rpl."Date_Added"
	FROM "rpt_patient_labs_log" rpll
	INNER JOIN "rpt_patient_log" rpl
	ON rpll."PatientSerNum" = rpl."PatientSerNum"`

// patientSelfQuery resolves the reference-store patient and their self
// relationship for one legacy patient identifier. Relationship type 1 is
// the patient acting as their own caregiver.
const patientSelfQuery = `
	SELECT pp.id, r.id, cc.user_id
	FROM patients_patient pp
	JOIN patients_relationship r ON r.patient_id = pp.id AND r.type_id = 1
	JOIN caregivers_caregiverprofile cc ON r.caregiver_id = cc.id
	WHERE pp.legacy_id = $1`

const patientByLegacyIDQuery = `
	SELECT pp.id
	FROM patients_patient pp
	WHERE pp.legacy_id = $1`

const insertAppActivityQuery = `
	INSERT INTO usage_statistics_dailyuserappactivity (
		action_by_user_id, last_login,
		count_logins, count_feedback,
		count_update_security_answers, count_update_passwords,
		count_update_language,
		count_device_ios, count_device_android, count_device_browser,
		date_added
	) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, $7)`

const insertPatientActivityQuery = `
	INSERT INTO usage_statistics_dailyuserpatientactivity (
		action_by_user_id, user_relationship_to_patient_id, patient_id,
		count_checkins, count_documents, count_educational_materials,
		count_questionnaires_complete, count_labs
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertDataReceivedQuery = `
	INSERT INTO usage_statistics_dailypatientdatareceived (
		patient_id,
		next_appointment, last_appointment_received, appointments_received,
		last_document_received, documents_received,
		last_educational_material_received, educational_materials_received,
		last_questionnaire_received, questionnaires_received,
		last_lab_received, labs_received,
		date_added
	) VALUES ($1, $2, $3, 0, $4, 0, NULL, 0, NULL, 0, $5, $6, $7)`

// DB is the query-and-exec surface the migration needs from each store.
// *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ActivityLog is one daily per-patient app-activity row from the legacy
// report store.
type ActivityLog struct {
	PatientSerNum             int64
	LastLogin                 *time.Time
	CountLogin                int64
	CountCheckin              int64
	CountClinicalNotes        int64
	CountEducationalMaterial  int64
	CountFeedback             int64
	CountQuestionnaire        int64
	CountLabResults           int64
	CountUpdateSecurityAnswer int64
	CountUpdatePassword       int64
	DateAdded                 time.Time
}

// DataReceivedLog is one daily per-patient data-received row from the
// legacy report store.
type DataReceivedLog struct {
	PatientSerNum            int64
	NextAppointment          *time.Time
	LastAppointmentReceived  *time.Time
	LastClinicalNoteReceived *time.Time
	LastLabReceived          *time.Time
	CountLabs                int64
	DateAdded                time.Time
}

// Summary reports how much of the legacy report data was imported.
type Summary struct {
	ActivityImported     int
	ActivityTotal        int
	DataReceivedImported int
	DataReceivedTotal    int
}

// Migrator moves usage statistics from the report source into the reference
// store.
type Migrator struct {
	Report    DB
	Reference DB
	Log       zerolog.Logger
}

// Run extracts both legacy report projections up front, then imports each
// row. Extraction failures are fatal; per-row import failures are logged
// with the offending legacy patient identifier and skipped.
func (m *Migrator) Run(ctx context.Context) (Summary, error) {
	activityLogs, err := m.fetchActivityLogs(ctx)
	if err != nil {
		return Summary{}, err
	}
	dataReceivedLogs, err := m.fetchDataReceivedLogs(ctx)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		ActivityTotal:     len(activityLogs),
		DataReceivedTotal: len(dataReceivedLogs),
	}

	for _, log := range activityLogs {
		if err := m.migrateActivityLog(ctx, log); err != nil {
			m.Log.Warn().
				Int64("legacy_id", log.PatientSerNum).
				Err(err).
				Msg("cannot import legacy activity log")
			continue
		}
		sum.ActivityImported++
	}

	for _, log := range dataReceivedLogs {
		if err := m.migrateDataReceivedLog(ctx, log); err != nil {
			m.Log.Warn().
				Int64("legacy_id", log.PatientSerNum).
				Err(err).
				Msg("cannot import legacy data received log")
			continue
		}
		sum.DataReceivedImported++
	}

	m.Log.Info().
		Int("activity_imported", sum.ActivityImported).
		Int("activity_total", sum.ActivityTotal).
		Int("data_received_imported", sum.DataReceivedImported).
		Int("data_received_total", sum.DataReceivedTotal).
		Msg("usage statistics migration complete")

	return sum, nil
}

func (m *Migrator) fetchActivityLogs(ctx context.Context) ([]ActivityLog, error) {
	rows, err := m.Report.Query(ctx, legacyActivityLogQuery)
	if err != nil {
		return nil, fmt.Errorf("query report source: %w", err)
	}
	defer rows.Close()

	var logs []ActivityLog
	for rows.Next() {
		var log ActivityLog
		if err := rows.Scan(
			&log.PatientSerNum,
			&log.LastLogin,
			&log.CountLogin,
			&log.CountCheckin,
			&log.CountClinicalNotes,
			&log.CountEducationalMaterial,
			&log.CountFeedback,
			&log.CountQuestionnaire,
			&log.CountLabResults,
			&log.CountUpdateSecurityAnswer,
			&log.CountUpdatePassword,
			&log.DateAdded,
		); err != nil {
			return nil, fmt.Errorf("scan report activity row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report activity rows: %w", err)
	}
	return logs, nil
}

func (m *Migrator) fetchDataReceivedLogs(ctx context.Context) ([]DataReceivedLog, error) {
	rows, err := m.Report.Query(ctx, legacyDataReceivedLogQuery)
	if err != nil {
		return nil, fmt.Errorf("query report source: %w", err)
	}
	defer rows.Close()

	var logs []DataReceivedLog
	for rows.Next() {
		var log DataReceivedLog
		if err := rows.Scan(
			&log.PatientSerNum,
			&log.NextAppointment,
			&log.LastAppointmentReceived,
			&log.LastClinicalNoteReceived,
			&log.LastLabReceived,
			&log.CountLabs,
			&log.DateAdded,
		); err != nil {
			return nil, fmt.Errorf("scan report data received row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report data received rows: %w", err)
	}
	return logs, nil
}

func (m *Migrator) migrateActivityLog(ctx context.Context, log ActivityLog) error {
	var patientID, relationshipID, userID int64
	rows, err := m.Reference.Query(ctx, patientSelfQuery, log.PatientSerNum)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("resolve patient: %w", err)
		}
		return fmt.Errorf("patient with legacy ID %d does not exist in system", log.PatientSerNum)
	}
	if err := rows.Scan(&patientID, &relationshipID, &userID); err != nil {
		return fmt.Errorf("scan patient resolution: %w", err)
	}
	rows.Close()

	if _, err := m.Reference.Exec(ctx, insertAppActivityQuery,
		userID, log.LastLogin,
		log.CountLogin, log.CountFeedback,
		log.CountUpdateSecurityAnswer, log.CountUpdatePassword,
		log.DateAdded,
	); err != nil {
		return fmt.Errorf("insert app activity: %w", err)
	}

	if _, err := m.Reference.Exec(ctx, insertPatientActivityQuery,
		userID, relationshipID, patientID,
		log.CountCheckin, log.CountClinicalNotes, log.CountEducationalMaterial,
		log.CountQuestionnaire, log.CountLabResults,
	); err != nil {
		return fmt.Errorf("insert patient activity: %w", err)
	}

	return nil
}

func (m *Migrator) migrateDataReceivedLog(ctx context.Context, log DataReceivedLog) error {
	rows, err := m.Reference.Query(ctx, patientByLegacyIDQuery, log.PatientSerNum)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("resolve patient: %w", err)
		}
		return fmt.Errorf("patient with legacy ID %d does not exist in system", log.PatientSerNum)
	}
	var patientID int64
	if err := rows.Scan(&patientID); err != nil {
		return fmt.Errorf("scan patient resolution: %w", err)
	}
	rows.Close()

	if _, err := m.Reference.Exec(ctx, insertDataReceivedQuery,
		patientID,
		log.NextAppointment, log.LastAppointmentReceived,
		log.LastClinicalNoteReceived,
		log.LastLabReceived, log.CountLabs,
		log.DateAdded,
	); err != nil {
		return fmt.Errorf("insert data received: %w", err)
	}

	return nil
}
