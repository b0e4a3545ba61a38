package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chromox/api/internal/client"
	"github.com/chromox/api/internal/model"
	"github.com/chromox/api/internal/service"
	"github.com/chromox/api/internal/websocket"
)

// ReplayWorker processes replay jobs: re-render the vocal, re-run the
// effects engine the original used, re-analyze the beat grid, then
// attach the new audio to the library record.
type ReplayWorker struct {
	libraryService *service.LibraryService
	voiceClient    *client.VoiceClient
	effectsClient  *client.EffectsClient
	beatClient     *client.BeatClient
	r2Client       client.StorageClient
	hub            *websocket.Hub
}

// NewReplayWorker creates a new replay worker
func NewReplayWorker(libraryService *service.LibraryService, voiceClient *client.VoiceClient, effectsClient *client.EffectsClient, beatClient *client.BeatClient, r2Client client.StorageClient, hub *websocket.Hub) *ReplayWorker {
	return &ReplayWorker{
		libraryService: libraryService,
		voiceClient:    voiceClient,
		effectsClient:  effectsClient,
		beatClient:     beatClient,
		r2Client:       r2Client,
		hub:            hub,
	}
}

// ProcessTask handles replay task processing
func (w *ReplayWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID    string `json:"jobId"`
		RenderID string `json:"renderId"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting replay job: %s", jobID)

	render, err := w.libraryService.GetRender(ctx, taskPayload.RenderID)
	if err != nil {
		w.failJob(ctx, jobID, "Render not found")
		return err
	}

	// Check if voice client is configured
	if w.voiceClient == nil || !w.voiceClient.IsConfigured() {
		return w.processWithMock(ctx, jobID, render)
	}

	return w.processWithVoice(ctx, jobID, render)
}

// processWithVoice runs the full replay pipeline against the real services
func (w *ReplayWorker) processWithVoice(ctx context.Context, jobID string, render *model.RenderJob) error {
	// Step 1: Re-render the vocal with the original settings
	w.updateProgress(ctx, jobID, 10, "Rendering vocal...")
	vocalReq := &client.RenderVocalRequest{
		Lyrics:    render.Lyrics,
		PersonaID: render.PersonaID,
		Style:     render.StylePrompt,
		Accent:    render.Accent,
	}
	if render.Guide != nil {
		vocalReq.GuideURL = render.Guide.SampleID
		vocalReq.GuideGain = render.Guide.MatchIntensity
	}

	vocalResp, err := w.voiceClient.RenderVocal(ctx, vocalReq)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Vocal render failed: %v", err))
		return err
	}

	// Step 2: Poll for vocal completion
	w.updateProgress(ctx, jobID, 30, "Waiting for vocal render...")
	vocalResult, err := w.voiceClient.PollRenderStatus(ctx, vocalResp.TaskID, 5*time.Second, 10*time.Minute)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Vocal render timed out: %v", err))
		return err
	}

	audioURL := vocalResult.AudioURL

	// Step 3: Re-apply the original effects pass, if the render had one
	if render.Effects != nil && w.effectsClient != nil && w.effectsClient.IsConfigured() {
		w.updateProgress(ctx, jobID, 55, "Applying effects...")
		fxResp, err := w.effectsClient.Process(ctx, &client.ProcessRequest{
			AudioURL:       audioURL,
			Engine:         string(render.Effects.Engine),
			Preset:         render.Effects.Preset,
			Params:         render.Effects.Params,
			PreviewSeconds: int(render.Effects.PreviewSeconds),
			OutputKey:      client.ReplayObjectKey("library", jobID),
		})
		if err != nil {
			w.failJob(ctx, jobID, fmt.Sprintf("Effects pass failed: %v", err))
			return err
		}
		audioURL = fxResp.OutputURL
	}

	// Step 4: Re-analyze the beat grid
	var beat *model.BeatAnalysis
	if w.beatClient != nil && w.beatClient.IsConfigured() {
		w.updateProgress(ctx, jobID, 80, "Analyzing beat...")
		analysis, err := w.beatClient.Analyze(ctx, audioURL)
		if err != nil {
			// Beat analysis is best-effort; the replay still succeeds.
			log.Printf("Beat analysis failed for job %s: %v", jobID, err)
		} else {
			beat = &model.BeatAnalysis{
				BPM:        analysis.BPM,
				Confidence: analysis.Confidence,
				BeatCount:  len(analysis.Beats),
				Duration:   analysis.Duration,
			}
		}
	}

	// Step 5: Attach the new audio to the library record
	w.updateProgress(ctx, jobID, 95, "Finalizing...")
	if err := w.libraryService.CompleteReplayJob(ctx, jobID, audioURL, beat); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, &model.ReplayJob{ID: jobID, RenderID: render.ID, Status: model.JobStatusSucceeded, Progress: 100, AudioURL: audioURL})
	w.hub.BroadcastChanged(model.CollectionRenders)
	log.Printf("Replay job %s completed", jobID)
	return nil
}

// processWithMock simulates the replay pipeline for development
func (w *ReplayWorker) processWithMock(ctx context.Context, jobID string, render *model.RenderJob) error {
	steps := []struct {
		progress int
		step     string
		duration time.Duration
	}{
		{10, "Rendering vocal...", 2 * time.Second},
		{40, "Applying effects...", 2 * time.Second},
		{70, "Analyzing beat...", 1 * time.Second},
		{95, "Finalizing...", 1 * time.Second},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			log.Printf("Replay job %s cancelled", jobID)
			return ctx.Err()
		default:
		}

		w.updateProgress(ctx, jobID, step.progress, step.step)
		time.Sleep(step.duration)
	}

	audioURL := fmt.Sprintf("https://cdn.chromox.app/%s", client.ReplayObjectKey("library", jobID))
	if w.r2Client != nil {
		audioURL = w.r2Client.GetPublicURL(client.ReplayObjectKey("library", jobID))
	}
	beat := &model.BeatAnalysis{BPM: 120, Confidence: 0.9, BeatCount: 240, Duration: 120}

	if err := w.libraryService.CompleteReplayJob(ctx, jobID, audioURL, beat); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, &model.ReplayJob{ID: jobID, RenderID: render.ID, Status: model.JobStatusSucceeded, Progress: 100, AudioURL: audioURL})
	w.hub.BroadcastChanged(model.CollectionRenders)
	log.Printf("Replay job %s completed (mock)", jobID)
	return nil
}

func (w *ReplayWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.libraryService.UpdateReplayProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *ReplayWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.libraryService.FailReplayJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "REPLAY_FAILED", errMsg)
}
