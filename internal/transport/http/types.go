package http

import "time"

type verifyAccessRequest struct {
	AccessCode    string `json:"accessCode" validate:"required,max=64"`
	ParticipantID string `json:"participantId" validate:"omitempty,max=64"`
}

type submitRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	QuestionID    string `json:"questionId" validate:"required"`
	LevelNumber   int    `json:"levelNumber" validate:"min=1"`
	Code          string `json:"code" validate:"required"`
	Language      string `json:"language" validate:"required,oneof=python c cpp java"`
	TimeTaken     int    `json:"timeTaken" validate:"min=0"`
	TimeRemaining *int   `json:"timeRemaining" validate:"omitempty,min=0"`
}

type executeRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required,oneof=python c cpp java"`
	Stdin    string `json:"stdin"`
}

type violationRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	Reason        string `json:"reason" validate:"required,max=200"`
}

type heartbeatRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	TimeRemaining *int   `json:"timeRemaining" validate:"omitempty,min=0"`
}

type registerRequest struct {
	TeamName    string `json:"teamName" validate:"required,max=100"`
	CollegeName string `json:"collegeName" validate:"max=200"`
	Members     string `json:"members" validate:"max=500"`
}

type lockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

type errorResponse struct {
	Error   string     `json:"error"`
	OpensAt *time.Time `json:"opensAt,omitempty"`
}
