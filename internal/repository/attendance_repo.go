package repository

import (
	"context"
	"time"

	"github.com/jwc684/ptmaster-sub000/internal/models"
)

type CreateAttendanceInput struct {
	SessionID             int64
	MemberID              int64
	CheckInTime           time.Time
	RemainingCreditsAfter int
	UnitPrice             *int64
	SharedNotes           *string
	InternalNotes         *string
}

type AttendanceRepository struct {
	db DBTX
}

func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = "id, session_id, member_id, check_in_time, remaining_credits_after, unit_price, shared_notes, internal_notes, created_at"

func (r *AttendanceRepository) Create(
	ctx context.Context,
	input CreateAttendanceInput,
) (*models.Attendance, error) {
	query := `
		INSERT INTO attendance_records (session_id, member_id, check_in_time, remaining_credits_after, unit_price, shared_notes, internal_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + attendanceColumns

	var attendance models.Attendance
	err := r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.MemberID,
		input.CheckInTime,
		input.RemainingCreditsAfter,
		input.UnitPrice,
		input.SharedNotes,
		input.InternalNotes,
	).Scan(
		&attendance.ID,
		&attendance.SessionID,
		&attendance.MemberID,
		&attendance.CheckInTime,
		&attendance.RemainingCreditsAfter,
		&attendance.UnitPrice,
		&attendance.SharedNotes,
		&attendance.InternalNotes,
		&attendance.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *AttendanceRepository) GetBySessionID(
	ctx context.Context,
	sessionID int64,
) (*models.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE session_id = $1
	`

	var attendance models.Attendance
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&attendance.ID,
		&attendance.SessionID,
		&attendance.MemberID,
		&attendance.CheckInTime,
		&attendance.RemainingCreditsAfter,
		&attendance.UnitPrice,
		&attendance.SharedNotes,
		&attendance.InternalNotes,
		&attendance.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

// DeleteBySessionID removes the session's attendance row if one exists.
// Returns how many rows were deleted so reverts can insist on exactly one.
func (r *AttendanceRepository) DeleteBySessionID(
	ctx context.Context,
	sessionID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM attendance_records WHERE session_id = $1", sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
