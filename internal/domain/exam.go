package domain

// LevelByCode returns the level unlocked by accessCode.
func (e Exam) LevelByCode(accessCode string) (ExamLevel, bool) {
	for _, level := range e.Levels {
		if level.AccessCode == accessCode {
			return level, true
		}
	}
	return ExamLevel{}, false
}

// LevelByNumber returns the level with the given number.
func (e Exam) LevelByNumber(number int) (ExamLevel, bool) {
	for _, level := range e.Levels {
		if level.LevelNumber == number {
			return level, true
		}
	}
	return ExamLevel{}, false
}

// Question finds a question assigned to any level of the exam.
func (e Exam) Question(questionID string) (Question, bool) {
	for _, level := range e.Levels {
		if q, ok := level.Question(questionID); ok {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionCount counts distinct questions across all levels.
func (e Exam) QuestionCount() int {
	seen := make(map[string]struct{})
	for _, level := range e.Levels {
		for _, q := range level.Questions {
			seen[q.ID] = struct{}{}
		}
	}
	return len(seen)
}

// Question finds a question assigned to this level.
func (l ExamLevel) Question(questionID string) (Question, bool) {
	for _, q := range l.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionIDs lists the ids of the level's questions in assignment order.
func (l ExamLevel) QuestionIDs() []string {
	ids := make([]string, 0, len(l.Questions))
	for _, q := range l.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// PublicTestCases hides input and expected output of hidden cases.
func (q Question) PublicTestCases() []TestCase {
	cases := make([]TestCase, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		if tc.IsHidden {
			cases = append(cases, TestCase{ID: tc.ID, IsHidden: true})
			continue
		}
		cases = append(cases, tc)
	}
	return cases
}
