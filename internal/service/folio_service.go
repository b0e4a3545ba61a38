package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chromox/api/internal/client"
	"github.com/chromox/api/internal/model"
)

const (
	clipKeyPrefix = "folio:clip:"
	clipIndexKey  = "folio:clips"
)

// FolioService manages the curated clip collection
type FolioService struct {
	redis      *redis.Client
	library    *LibraryService
	r2Client   client.StorageClient
	beatClient *client.BeatClient
}

func NewFolioService(redisClient *redis.Client, library *LibraryService, r2Client client.StorageClient, beatClient *client.BeatClient) *FolioService {
	return &FolioService{
		redis:      redisClient,
		library:    library,
		r2Client:   r2Client,
		beatClient: beatClient,
	}
}

// ListClips loads every clip in the index. Records written before
// SourceKind existed are normalized on the way out.
func (s *FolioService) ListClips(ctx context.Context) ([]model.FolioClip, error) {
	ids, err := s.redis.SMembers(ctx, clipIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read clip index: %w", err)
	}

	clips := make([]model.FolioClip, 0, len(ids))
	for _, id := range ids {
		clip, err := s.GetClip(ctx, id)
		if err != nil {
			continue
		}
		clips = append(clips, *clip)
	}
	return clips, nil
}

// GetClip loads one clip record
func (s *FolioService) GetClip(ctx context.Context, id string) (*model.FolioClip, error) {
	data, err := s.redis.Get(ctx, clipKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("clip not found")
		}
		return nil, err
	}

	var clip model.FolioClip
	if err := json.Unmarshal(data, &clip); err != nil {
		return nil, err
	}
	clip = model.NormalizeClip(clip)
	return &clip, nil
}

// SaveClip persists a clip record and registers it in the index
func (s *FolioService) SaveClip(ctx context.Context, clip *model.FolioClip) error {
	data, err := json.Marshal(clip)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, clipKeyPrefix+clip.ID, data, 0).Err(); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, clipIndexKey, clip.ID).Err()
}

// AddFromRender copies a render's audio into the folio as a new clip.
// The clip name falls back from the suggested name to the render label
// to the persona name.
func (s *FolioService) AddFromRender(ctx context.Context, renderID, suggestedName string) error {
	render, err := s.library.GetRender(ctx, renderID)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(suggestedName)
	if name == "" {
		name = render.Label
	}
	if name == "" {
		name = render.PersonaName
	}

	clip := &model.FolioClip{
		ID:                uuid.New().String(),
		Name:              name,
		SourceKind:        model.SourceRender,
		SourcePersonaName: render.PersonaName,
		AddedAt:           time.Now(),
		AudioURL:          render.AudioURL,
		Beat:              render.Beat,
	}
	if render.Beat != nil {
		clip.Duration = render.Beat.Duration
	}

	return s.SaveClip(ctx, clip)
}

// UploadClip stores an uploaded audio file and registers it as a clip.
// With no storage client configured, a mock CDN URL is returned so
// local development works without R2 credentials.
func (s *FolioService) UploadClip(ctx context.Context, userID, name, ext, contentType string, file io.Reader) (*model.UploadClipResponse, error) {
	clipID := uuid.New().String()
	now := time.Now()

	var audioURL string
	if s.r2Client == nil {
		audioURL = fmt.Sprintf("https://cdn.chromox.app/%s", client.FolioObjectKey(userID, clipID, ext))
	} else {
		key := client.FolioObjectKey(userID, clipID, ext)
		url, err := s.r2Client.Upload(ctx, key, file, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload clip: %w", err)
		}
		audioURL = url
	}

	clip := &model.FolioClip{
		ID:         clipID,
		Name:       name,
		SourceKind: model.SourceUpload,
		AddedAt:    now,
		AudioURL:   audioURL,
	}

	// Beat analysis is best effort; an upload never fails because the
	// analyzer is down.
	if s.beatClient != nil && s.beatClient.IsConfigured() {
		if analysis, err := s.beatClient.Analyze(ctx, audioURL); err != nil {
			log.Printf("beat analysis failed for clip %s: %v", clipID, err)
		} else {
			clip.Beat = &model.BeatAnalysis{
				BPM:        analysis.BPM,
				Confidence: analysis.Confidence,
				BeatCount:  len(analysis.Beats),
				Duration:   analysis.Duration,
			}
			clip.Duration = analysis.Duration
		}
	}

	if err := s.SaveClip(ctx, clip); err != nil {
		return nil, err
	}

	return &model.UploadClipResponse{
		ID:       clipID,
		Name:     name,
		AudioURL: audioURL,
		Duration: clip.Duration,
		AddedAt:  now,
	}, nil
}

// RemoveClip deletes a clip record. Guide clips are read-only and the
// call is rejected even if a caller slipped past the orchestrator.
func (s *FolioService) RemoveClip(ctx context.Context, id string) error {
	clip, err := s.GetClip(ctx, id)
	if err != nil {
		return err
	}
	if !clip.Removable() {
		return fmt.Errorf("guide clips cannot be removed")
	}

	if err := s.redis.Del(ctx, clipKeyPrefix+id).Err(); err != nil {
		return err
	}
	return s.redis.SRem(ctx, clipIndexKey, id).Err()
}
