package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contest-engine/internal/domain"
)

// Languages maps contest language identifiers to Judge0 language ids.
var Languages = map[string]int{
	"python": 71,
	"c":      50,
	"cpp":    54,
	"java":   62,
}

// Judge0 status ids.
const (
	statusAccepted          = 3
	statusWrongAnswer       = 4
	statusTimeLimitExceeded = 5
	statusCompilationError  = 6
	statusRuntimeFirst      = 7
	statusRuntimeLast       = 12
)

// Executor runs code on a Judge0 instance with synchronous (wait=true) submissions.
type Executor struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewExecutor(baseURL, authToken string, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Executor{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
	}
}

type submissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type submissionResponse struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (e *Executor) Execute(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	languageID, ok := Languages[strings.ToLower(req.Language)]
	if !ok {
		return domain.ExecResult{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedLanguage, req.Language)
	}

	body, err := json.Marshal(submissionRequest{
		SourceCode: base64.StdEncoding.EncodeToString([]byte(req.Source)),
		LanguageID: languageID,
		Stdin:      base64.StdEncoding.EncodeToString([]byte(req.Stdin)),
	})
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("encode submission: %w", err)
	}

	url := e.baseURL + "/submissions?base64_encoded=true&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ExecResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.authToken != "" {
		httpReq.Header.Set("X-Auth-Token", e.authToken)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("judge0 request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ExecResult{}, fmt.Errorf("judge0 status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ExecResult{}, fmt.Errorf("decode judge0 response: %w", err)
	}

	return domain.ExecResult{
		Stdout:        decode(out.Stdout),
		Stderr:        decode(out.Stderr),
		CompileOutput: decode(out.CompileOutput),
		Message:       decode(out.Message),
		Status:        mapStatus(out.Status.ID),
	}, nil
}

// mapStatus folds Judge0 statuses into the engine's outcome set. Wrong answer is
// still a completed run; output comparison happens in the resolver.
func mapStatus(id int) domain.ExecStatus {
	switch {
	case id == statusAccepted, id == statusWrongAnswer:
		return domain.ExecAccepted
	case id == statusCompilationError:
		return domain.ExecCompileError
	case id == statusTimeLimitExceeded:
		return domain.ExecTimeLimit
	case id >= statusRuntimeFirst && id <= statusRuntimeLast:
		return domain.ExecRuntimeError
	default:
		return domain.ExecInternal
	}
}

func decode(s *string) string {
	if s == nil {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*s))
	if err != nil {
		// Judge0 wraps long base64 payloads with newlines.
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(*s, "\n", ""))
		if err != nil {
			return *s
		}
	}
	return string(raw)
}
