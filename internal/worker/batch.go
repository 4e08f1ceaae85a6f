package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

// Asker runs the full commit-and-verify pipeline for one question
type Asker interface {
	Ask(ctx context.Context, question string) (*model.BatchReport, error)
}

// QuestionJob represents one question to answer and verify
type QuestionJob struct {
	Question string
	Asker    Asker
}

// Execute asks the question and wraps the outcome
func (j *QuestionJob) Execute(ctx context.Context) Result {
	report, err := j.Asker.Ask(ctx, j.Question)
	return &QuestionResult{Question: j.Question, Report: report, Error: err}
}

// QuestionResult pairs a question with its report or failure
type QuestionResult struct {
	Question string
	Report   *model.BatchReport
	Error    error
}

func (r *QuestionResult) GetError() error { return r.Error }

// BatchProcessor processes multiple questions concurrently
type BatchProcessor struct {
	asker       Asker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(asker Asker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		asker:       asker,
		concurrency: concurrency,
	}
}

// ProcessQuestions processes multiple questions concurrently
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []string) []*QuestionResult {
	if len(questions) == 0 {
		return []*QuestionResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for _, question := range questions {
		job := &QuestionJob{
			Question: question,
			Asker:    b.asker,
		}
		pool.Submit(job)
	}

	results := pool.Wait()

	questionResults := make([]*QuestionResult, len(results))
	for i, result := range results {
		questionResults[i] = result.(*QuestionResult)
	}
	return questionResults
}

// ProcessFile reads questions from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QuestionResult, error) {
	questions, err := ReadQuestionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	return b.ProcessQuestions(ctx, questions), nil
}

// ReadQuestionsFromFile reads one question per line, trimming whitespace,
// skipping blank lines and # comments, and dropping duplicates
func ReadQuestionsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var questions []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		questions = append(questions, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return questions, nil
}
