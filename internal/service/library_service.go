package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/chromox/api/internal/model"
)

const (
	// TaskTypeReplay is the asynq task type for background re-renders
	TaskTypeReplay = "replay:process"

	renderKeyPrefix = "library:render:"
	renderIndexKey  = "library:renders"
	replayKeyPrefix = "library:replay:"
)

// LibraryService manages the persisted render history and replay jobs
type LibraryService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewLibraryService(redisClient *redis.Client, asynqClient *asynq.Client) *LibraryService {
	return &LibraryService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// ListRenders loads every render record in the index. Order is not
// guaranteed here; the view layer sorts.
func (s *LibraryService) ListRenders(ctx context.Context) ([]model.RenderJob, error) {
	ids, err := s.redis.SMembers(ctx, renderIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read render index: %w", err)
	}

	renders := make([]model.RenderJob, 0, len(ids))
	for _, id := range ids {
		render, err := s.GetRender(ctx, id)
		if err != nil {
			// A dangling index entry is not fatal; skip it.
			continue
		}
		renders = append(renders, *render)
	}
	return renders, nil
}

// GetRender loads one render record
func (s *LibraryService) GetRender(ctx context.Context, id string) (*model.RenderJob, error) {
	data, err := s.redis.Get(ctx, renderKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("render not found")
		}
		return nil, err
	}

	var render model.RenderJob
	if err := json.Unmarshal(data, &render); err != nil {
		return nil, err
	}
	return &render, nil
}

// SaveRender persists a render record and registers it in the index
func (s *LibraryService) SaveRender(ctx context.Context, render *model.RenderJob) error {
	data, err := json.Marshal(render)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, renderKeyPrefix+render.ID, data, 0).Err(); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, renderIndexKey, render.ID).Err()
}

// Rate sets the rating field on a render record
func (s *LibraryService) Rate(ctx context.Context, id string, rating model.Rating) error {
	render, err := s.GetRender(ctx, id)
	if err != nil {
		return err
	}
	render.Rating = rating
	return s.SaveRender(ctx, render)
}

// Rename sets the label field on a render record
func (s *LibraryService) Rename(ctx context.Context, id, label string) error {
	render, err := s.GetRender(ctx, id)
	if err != nil {
		return err
	}
	render.Label = label
	return s.SaveRender(ctx, render)
}

// Replay queues a background re-render of an existing library item
func (s *LibraryService) Replay(ctx context.Context, renderID string) (*model.ReplayResponse, error) {
	render, err := s.GetRender(ctx, renderID)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()

	job := &model.ReplayJob{
		ID:        jobID,
		RenderID:  render.ID,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}

	if err := s.saveReplayJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save replay job: %w", err)
	}

	task, err := newReplayTask(jobID, render.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("replay"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.ReplayResponse{
		JobID:     jobID,
		RenderID:  render.ID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetReplayJob loads one replay job record
func (s *LibraryService) GetReplayJob(ctx context.Context, jobID string) (*model.ReplayJob, error) {
	data, err := s.redis.Get(ctx, replayKeyPrefix+jobID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("replay job not found")
		}
		return nil, err
	}

	var job model.ReplayJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateReplayProgress updates replay job progress (called by worker)
func (s *LibraryService) UpdateReplayProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.GetReplayJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveReplayJob(ctx, job)
}

// CompleteReplayJob marks a replay job as succeeded and records the new
// audio on the underlying render (called by worker)
func (s *LibraryService) CompleteReplayJob(ctx context.Context, jobID, audioURL string, beat *model.BeatAnalysis) error {
	job, err := s.GetReplayJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.AudioURL = audioURL
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveReplayJob(ctx, job); err != nil {
		return err
	}

	render, err := s.GetRender(ctx, job.RenderID)
	if err != nil {
		return err
	}
	render.AudioURL = audioURL
	if beat != nil {
		render.Beat = beat
	}
	return s.SaveRender(ctx, render)
}

// FailReplayJob marks a replay job as failed (called by worker)
func (s *LibraryService) FailReplayJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.GetReplayJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveReplayJob(ctx, job)
}

// Helper methods

func (s *LibraryService) saveReplayJob(ctx context.Context, job *model.ReplayJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, replayKeyPrefix+job.ID, data, 24*time.Hour).Err()
}

func newReplayTask(jobID, renderID string) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":    jobID,
		"renderId": renderID,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReplay, data), nil
}
