package config

import (
	"fmt"
	"os"

	"contest-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

// ExamFile is the YAML layout organizers author exam content in.
type ExamFile struct {
	Exams []domain.Exam `yaml:"exams"`
}

// LoadExams reads and validates exam content from a YAML file.
func LoadExams(path string) ([]domain.Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ExamFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse exams: %w", err)
	}

	codes := make(map[string]string)
	for i := range file.Exams {
		exam := &file.Exams[i]
		if exam.ID == "" {
			return nil, fmt.Errorf("exam #%d: missing id", i+1)
		}
		numbers := make(map[int]struct{})
		for j := range exam.Levels {
			level := &exam.Levels[j]
			level.ExamID = exam.ID
			if level.AccessCode == "" {
				return nil, fmt.Errorf("exam %s level %d: missing access code", exam.ID, level.LevelNumber)
			}
			if owner, ok := codes[level.AccessCode]; ok {
				return nil, fmt.Errorf("access code %q used by %s and %s", level.AccessCode, owner, exam.ID)
			}
			codes[level.AccessCode] = exam.ID
			if _, ok := numbers[level.LevelNumber]; ok {
				return nil, fmt.Errorf("exam %s: duplicate level number %d", exam.ID, level.LevelNumber)
			}
			numbers[level.LevelNumber] = struct{}{}
		}
	}
	return file.Exams, nil
}

// ExamsByID indexes exams for the static loader.
func ExamsByID(exams []domain.Exam) map[string]domain.Exam {
	out := make(map[string]domain.Exam, len(exams))
	for _, exam := range exams {
		out[exam.ID] = exam
	}
	return out
}
