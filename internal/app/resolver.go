package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"contest-engine/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs source code in one sandbox backend.
type Executor interface {
	Execute(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error)
}

// Resolver turns a submission into per-test-case outcomes.
type Resolver struct {
	exec        Executor
	concurrency int
	log         *zap.Logger
}

// NewResolver runs up to concurrency cases at a time; 1 or less is sequential.
func NewResolver(exec Executor, concurrency int, log *zap.Logger) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{exec: exec, concurrency: concurrency, log: log}
}

// Run executes code once with custom input. It is never graded.
func (r *Resolver) Run(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	res, err := r.exec.Execute(ctx, req)
	if err != nil {
		return domain.ExecResult{}, fmt.Errorf("%w: %w", domain.ErrSandbox, err)
	}
	return res, nil
}

// Resolve runs code against every test case and returns outcomes in test case
// order. A sandbox failure fails that case only. onOutcome, if set, is called as
// each case completes.
func (r *Resolver) Resolve(ctx context.Context, code, language string, cases []domain.TestCase, onOutcome func(i int, o domain.TestOutcome)) []domain.TestOutcome {
	outcomes := make([]domain.TestOutcome, len(cases))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			o := r.resolveOne(gctx, code, language, tc)
			outcomes[i] = o
			if onOutcome != nil {
				mu.Lock()
				onOutcome(i, o)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (r *Resolver) resolveOne(ctx context.Context, code, language string, tc domain.TestCase) domain.TestOutcome {
	out := domain.TestOutcome{TestCaseID: tc.ID}
	res, err := r.exec.Execute(ctx, domain.ExecRequest{Source: code, Language: language, Stdin: tc.Input})
	if err != nil {
		r.log.Warn("sandbox execution failed",
			zap.String("test_case_id", tc.ID),
			zap.String("language", language),
			zap.Error(err),
		)
		out.Error = fmt.Errorf("%w: %w", domain.ErrSandbox, err).Error()
		return out
	}
	out.ActualOutput = res.Stdout
	out.Stderr = res.Stderr
	if res.CompileOutput != "" && out.Stderr == "" {
		out.Stderr = res.CompileOutput
	}
	out.Passed = res.Status == domain.ExecAccepted && OutputMatches(res.Stdout, tc.ExpectedOutput)
	return out
}

// OutputMatches compares program output to the expected output ignoring
// surrounding whitespace.
func OutputMatches(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}
