package postgres

import (
	"time"

	"contest-engine/internal/domain"
	"github.com/uptrace/bun"
)

type examRow struct {
	bun.BaseModel `bun:"table:exams,alias:e"`

	ID        string      `bun:"id,pk"`
	Title     string      `bun:"title"`
	Data      domain.Exam `bun:"data,type:jsonb"`
	UpdatedAt time.Time   `bun:"updated_at"`
}

type accessCodeRow struct {
	bun.BaseModel `bun:"table:exam_access_codes,alias:ac"`

	AccessCode  string `bun:"access_code,pk"`
	ExamID      string `bun:"exam_id"`
	LevelNumber int    `bun:"level_number"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID             string    `bun:"id,pk"`
	TeamName       string    `bun:"team_name"`
	CollegeName    string    `bun:"college_name"`
	Members        string    `bun:"members"`
	ExamID         string    `bun:"exam_id"`
	Score          int       `bun:"score"`
	TotalTime      int       `bun:"total_time"`
	CurrentLevel   int       `bun:"current_level"`
	ViolationCount int       `bun:"violation_count"`
	ExtraAttempts  int       `bun:"extra_attempts"`
	IsLocked       bool      `bun:"is_locked"`
	IsStarted      bool      `bun:"is_started"`
	TimeRemaining  *int      `bun:"time_remaining"`
	LastActive     time.Time `bun:"last_active"`
	CreatedAt      time.Time `bun:"created_at"`
}

func newParticipantRow(p domain.Participant) *participantRow {
	return &participantRow{
		ID:             p.ID,
		TeamName:       p.TeamName,
		CollegeName:    p.CollegeName,
		Members:        p.Members,
		ExamID:         p.ExamID,
		Score:          p.Score,
		TotalTime:      p.TotalTime,
		CurrentLevel:   p.CurrentLevel,
		ViolationCount: p.ViolationCount,
		ExtraAttempts:  p.ExtraAttempts,
		IsLocked:       p.IsLocked,
		IsStarted:      p.IsStarted,
		TimeRemaining:  p.TimeRemaining,
		LastActive:     p.LastActive,
		CreatedAt:      p.CreatedAt,
	}
}

func (r *participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:             r.ID,
		TeamName:       r.TeamName,
		CollegeName:    r.CollegeName,
		Members:        r.Members,
		ExamID:         r.ExamID,
		Score:          r.Score,
		TotalTime:      r.TotalTime,
		CurrentLevel:   r.CurrentLevel,
		ViolationCount: r.ViolationCount,
		ExtraAttempts:  r.ExtraAttempts,
		IsLocked:       r.IsLocked,
		IsStarted:      r.IsStarted,
		TimeRemaining:  r.TimeRemaining,
		LastActive:     r.LastActive,
		CreatedAt:      r.CreatedAt,
	}
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID            string    `bun:"id,pk"`
	ParticipantID string    `bun:"participant_id"`
	QuestionID    string    `bun:"question_id"`
	LevelNumber   int       `bun:"level_number"`
	Code          string    `bun:"code"`
	Language      string    `bun:"language"`
	Score         int       `bun:"score"`
	TimeTaken     int       `bun:"time_taken"`
	Status        string    `bun:"status"`
	CreatedAt     time.Time `bun:"created_at"`
}

func (r *submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		QuestionID:    r.QuestionID,
		LevelNumber:   r.LevelNumber,
		Code:          r.Code,
		Language:      r.Language,
		Score:         r.Score,
		TimeTaken:     r.TimeTaken,
		Status:        domain.SubmissionStatus(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

type levelAttemptRow struct {
	bun.BaseModel `bun:"table:level_attempts,alias:la"`

	ParticipantID string `bun:"participant_id,pk"`
	LevelID       string `bun:"level_id,pk"`
	Attempts      int    `bun:"attempts"`
}

type violationRow struct {
	bun.BaseModel `bun:"table:violations,alias:v"`

	ID            string    `bun:"id,pk"`
	ParticipantID string    `bun:"participant_id"`
	Reason        string    `bun:"reason"`
	ScoreBefore   int       `bun:"score_before"`
	ScoreAfter    int       `bun:"score_after"`
	CreatedAt     time.Time `bun:"created_at"`
}
