package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovenav/internal/llm"
	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/storage"
)

// ErrTaskNotFound — задачи нет (не создавалась или истёк TTL).
var ErrTaskNotFound = errors.New("task not found")

const (
	taskTTL     = time.Hour
	taskTimeout = 2 * time.Minute
)

// Статусы фоновой задачи.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// LLMTaskService — фоновые LLM-задачи: генерация выполняется в горутине,
// статус и результат живут в Redis-hash с TTL.
type LLMTaskService struct {
	tasks      storage.TaskStore
	generator  ItineraryGenerator
	summarizer ReportSummarizer
}

func NewLLMTaskService(tasks storage.TaskStore, gen ItineraryGenerator, sum ReportSummarizer) *LLMTaskService {
	return &LLMTaskService{tasks: tasks, generator: gen, summarizer: sum}
}

func (s *LLMTaskService) newTask(ctx context.Context, taskType string) (string, error) {
	taskID := strings.ReplaceAll(uuid.NewString(), "-", "")
	err := s.tasks.SetTask(ctx, taskID, map[string]string{
		"status":     TaskStatusPending,
		"type":       taskType,
		"created_at": nowISO(),
	}, taskTTL)
	if err != nil {
		return "", err
	}
	return taskID, nil
}

// run выполняет работу в отдельной горутине. Контекст запроса к этому
// моменту уже может быть отменён, поэтому берём свой с таймаутом.
func (s *LLMTaskService) run(taskID string, work func(ctx context.Context) (string, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		if err := s.tasks.UpdateTask(ctx, taskID, map[string]string{
			"status":     TaskStatusRunning,
			"started_at": nowISO(),
		}); err != nil {
			logger.Errorf("llm task %s: mark running: %v", taskID, err)
		}

		result, err := work(ctx)
		fields := map[string]string{"finished_at": nowISO()}
		if err != nil {
			fields["status"] = TaskStatusFailed
			fields["error"] = err.Error()
			logger.Errorf("llm task %s failed: %v", taskID, err)
		} else {
			fields["status"] = TaskStatusCompleted
			fields["result"] = result
		}
		if err := s.tasks.UpdateTask(ctx, taskID, fields); err != nil {
			logger.Errorf("llm task %s: save result: %v", taskID, err)
		}
	}()
}

// EnqueueItinerary ставит задачу генерации курса и сразу возвращает её id.
func (s *LLMTaskService) EnqueueItinerary(ctx context.Context, req llm.ItineraryRequest) (string, error) {
	taskID, err := s.newTask(ctx, "itinerary")
	if err != nil {
		return "", err
	}
	s.run(taskID, func(ctx context.Context) (string, error) {
		items, err := s.generator.GenerateItinerary(ctx, req)
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	})
	return taskID, nil
}

// EnqueueReport ставит задачу генерации текста отчёта.
func (s *LLMTaskService) EnqueueReport(ctx context.Context, payload llm.ReportPayload) (string, error) {
	taskID, err := s.newTask(ctx, "report")
	if err != nil {
		return "", err
	}
	s.run(taskID, func(ctx context.Context) (string, error) {
		return s.summarizer.GenerateReportSummary(ctx, payload)
	})
	return taskID, nil
}

// Status возвращает состояние задачи; result декодируется из JSON,
// если это JSON.
func (s *LLMTaskService) Status(ctx context.Context, taskID string) (map[string]interface{}, error) {
	fields, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrTaskNotFound
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		var decoded interface{}
		if json.Unmarshal([]byte(v), &decoded) == nil {
			out[k] = decoded
		} else {
			out[k] = v
		}
	}
	out["task_id"] = taskID
	return out, nil
}
