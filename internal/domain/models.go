package domain

import "time"

// DefaultPoints is used for questions that do not declare a point value.
const DefaultPoints = 10

// SubmissionStatus is the graded outcome of one attempt.
type SubmissionStatus string

const (
	StatusPassed SubmissionStatus = "PASSED"
	StatusFailed SubmissionStatus = "FAILED"
)

// Participant is a registered team and its authoritative standing.
type Participant struct {
	ID             string    `json:"id"`
	TeamName       string    `json:"teamName"`
	CollegeName    string    `json:"collegeName,omitempty"`
	Members        string    `json:"members,omitempty"`
	ExamID         string    `json:"examId,omitempty"`
	Score          int       `json:"score"`
	TotalTime      int       `json:"totalTime"`
	CurrentLevel   int       `json:"currentLevel"`
	ViolationCount int       `json:"violationCount"`
	ExtraAttempts  int       `json:"extraAttempts"`
	IsLocked       bool      `json:"isLocked"`
	IsStarted      bool      `json:"isStarted"`
	TimeRemaining  *int      `json:"timeRemaining,omitempty"`
	LastActive     time.Time `json:"lastActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TestCase is one input/expected-output pair of a question.
type TestCase struct {
	ID             string `json:"id" yaml:"id"`
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
	IsHidden       bool   `json:"isHidden" yaml:"isHidden"`
}

// Question is a programming problem graded against its test cases.
type Question struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Languages   []string   `json:"languages,omitempty" yaml:"languages"`
	Points      int        `json:"points" yaml:"points"` // defaults to DefaultPoints if zero
	TestCases   []TestCase `json:"testCases" yaml:"testCases"`
}

// EffectivePoints returns the declared points or the default.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// ExamLevel is a timed phase unlocked by an access code.
type ExamLevel struct {
	ID          string     `json:"id" yaml:"id"`
	ExamID      string     `json:"examId" yaml:"-"`
	LevelNumber int        `json:"levelNumber" yaml:"levelNumber"`
	AccessCode  string     `json:"accessCode" yaml:"accessCode"`
	TimeLimit   int        `json:"timeLimit" yaml:"timeLimit"` // minutes
	StartTime   *time.Time `json:"startTime,omitempty" yaml:"startTime"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// Exam groups ordered levels.
type Exam struct {
	ID     string      `json:"id" yaml:"id"`
	Title  string      `json:"title" yaml:"title"`
	Levels []ExamLevel `json:"levels" yaml:"levels"`
}

// Submission is an immutable graded attempt.
type Submission struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participantId"`
	QuestionID    string           `json:"questionId"`
	LevelNumber   int              `json:"levelNumber"`
	Code          string           `json:"code"`
	Language      string           `json:"language"`
	Score         int              `json:"score"`
	TimeTaken     int              `json:"timeTaken"`
	Status        SubmissionStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// LevelAttempt counts access-code entries per participant and level.
type LevelAttempt struct {
	ParticipantID string    `json:"participantId"`
	LevelID       string    `json:"levelId"`
	Attempts      int       `json:"attempts"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Violation is an audit row for a proctoring infraction.
type Violation struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	Reason        string    `json:"reason"`
	ScoreBefore   int       `json:"scoreBefore"`
	ScoreAfter    int       `json:"scoreAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TestOutcome is the result of running a submission against one test case.
type TestOutcome struct {
	TestCaseID   string `json:"testCaseId"`
	Passed       bool   `json:"passed"`
	ActualOutput string `json:"actualOutput,omitempty"`
	Stderr       string `json:"stderr,omitempty"`
	Error        string `json:"error,omitempty"`
}

// QuestionView is a question as shown to a participant behind the gate.
type QuestionView struct {
	Question
	Solved bool `json:"solved"`
}

// LevelView is returned by a successful access-code entry.
type LevelView struct {
	LevelID           string         `json:"levelId"`
	ExamID            string         `json:"examId"`
	ExamTitle         string         `json:"examTitle"`
	LevelNumber       int            `json:"levelNumber"`
	TimeLimit         int            `json:"timeLimit"`
	StartTime         *time.Time     `json:"startTime,omitempty"`
	Questions         []QuestionView `json:"questions"`
	TimeRemaining     *int           `json:"timeRemaining,omitempty"`
	AttemptsUsed      int            `json:"attemptsUsed"`
	AttemptsRemaining int            `json:"attemptsRemaining"`
	IsLocked          bool           `json:"isLocked"`
}

// SubmitInput is a graded submission with outcomes already resolved.
type SubmitInput struct {
	ParticipantID string
	QuestionID    string
	LevelNumber   int
	Code          string
	Language      string
	Outcomes      []TestOutcome
	TimeTaken     int
	TimeRemaining *int
}

// SubmitResult is the participant's standing after a submission.
type SubmitResult struct {
	SubmissionID string `json:"submissionId"`
	AttemptScore int    `json:"attemptScore"`
	Passed       bool   `json:"passed"`
	Score        int    `json:"score"`
	TotalTime    int    `json:"totalTime"`
	CurrentLevel int    `json:"currentLevel"`
	Advanced     bool   `json:"advanced"`
}

// ViolationResult is returned after a penalty was applied.
type ViolationResult struct {
	Score          int    `json:"score"`
	ViolationCount int    `json:"violationCount"`
	TeamName       string `json:"teamName"`
}

// HeartbeatResult is the minimal state a polling client needs.
type HeartbeatResult struct {
	Score         int  `json:"score"`
	CurrentLevel  int  `json:"currentLevel"`
	IsLocked      bool `json:"isLocked"`
	TimeRemaining *int `json:"timeRemaining,omitempty"`
}

// LeaderboardEntry is a ranked participant.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	ParticipantID  string `json:"participantId"`
	TeamName       string `json:"teamName"`
	Score          int    `json:"score"`
	TotalTime      int    `json:"totalTime"`
	CurrentLevel   int    `json:"currentLevel"`
	Solved         int    `json:"solved"`
	ViolationCount int    `json:"violationCount"`
	Online         bool   `json:"online"`
}

// Leaderboard captures the ordered standings.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuestionResult is the best result of a participant on one question.
type QuestionResult struct {
	QuestionID  string           `json:"questionId"`
	LevelNumber int              `json:"levelNumber"`
	BestScore   int              `json:"bestScore"`
	Status      SubmissionStatus `json:"status"`
	Attempts    int              `json:"attempts"`
}

// Profile is a participant with a per-question summary.
type Profile struct {
	Participant Participant      `json:"participant"`
	Results     []QuestionResult `json:"results"`
	Online      bool             `json:"online"`
}

// Stats are organizer-level totals.
type Stats struct {
	TotalQuestions  int `json:"totalQuestions"`
	TotalExams      int `json:"totalExams"`
	RegisteredTeams int `json:"registeredTeams"`
	TotalViolations int `json:"totalViolations"`
}

// ExecRequest is a single sandbox run.
type ExecRequest struct {
	Source   string `json:"source"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

// ExecStatus is the sandbox verdict of a run.
type ExecStatus string

const (
	ExecAccepted     ExecStatus = "ACCEPTED"
	ExecCompileError ExecStatus = "COMPILE_ERROR"
	ExecRuntimeError ExecStatus = "RUNTIME_ERROR"
	ExecTimeLimit    ExecStatus = "TIME_LIMIT"
	ExecInternal     ExecStatus = "INTERNAL_ERROR"
)

// ExecResult is the decoded sandbox response.
type ExecResult struct {
	Stdout        string     `json:"stdout"`
	Stderr        string     `json:"stderr"`
	CompileOutput string     `json:"compileOutput"`
	Status        ExecStatus `json:"status"`
	Message       string     `json:"message,omitempty"`
}
