package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/imagen"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/store"
)

var validAspectRatios = map[string]struct{}{
	"1:1":  {},
	"3:4":  {},
	"4:3":  {},
	"9:16": {},
	"16:9": {},
}

type ImageProvider interface {
	Generate(ctx context.Context, opts imagen.GenerateOptions) (*imagen.Image, error)
}

type ImageUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// GenerationService runs the image generation round trip. The provider call
// happens outside the dispatcher; its result re-enters as one atomic
// record-and-debit action.
type GenerationService struct {
	log      *slog.Logger
	store    *store.Dispatcher
	provider ImageProvider
	uploader ImageUploader // nil: keep the inline data URL

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGenerationService(log *slog.Logger, dispatcher *store.Dispatcher, provider ImageProvider, uploader ImageUploader) *GenerationService {
	return &GenerationService{
		log:      log,
		store:    dispatcher,
		provider: provider,
		uploader: uploader,
		inFlight: make(map[string]struct{}),
	}
}

func (s *GenerationService) Generate(ctx context.Context, userID, prompt, negativePrompt, aspectRatio string) (models.GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return models.GeneratedImage{}, fmt.Errorf("%w: prompt is required", common.ErrInvalidInput)
	}
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}
	if _, ok := validAspectRatios[aspectRatio]; !ok {
		return models.GeneratedImage{}, fmt.Errorf("%w: unsupported aspect ratio %q", common.ErrInvalidInput, aspectRatio)
	}

	// reject before the provider round trip when the balance cannot cover it
	user, ok := s.store.Snapshot().UserByID(userID)
	if !ok {
		return models.GeneratedImage{}, fmt.Errorf("user %s: %w", userID, common.ErrNotFound)
	}
	if user.Credits < 1 {
		return models.GeneratedImage{}, common.ErrInsufficientBalance
	}

	if !s.acquire(userID) {
		return models.GeneratedImage{}, common.ErrGenerationInFlight
	}
	defer s.release(userID)

	img, err := s.provider.Generate(ctx, imagen.GenerateOptions{
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(negativePrompt),
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return models.GeneratedImage{}, err
	}

	// a result arriving after cancellation is discarded; no debit happens
	if err := ctx.Err(); err != nil {
		s.log.Info("generation discarded", "user_id", userID, "reason", err)
		return models.GeneratedImage{}, err
	}

	src, err := s.imageRef(ctx, img)
	if err != nil {
		return models.GeneratedImage{}, err
	}

	record := models.GeneratedImage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Src:       src,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
	// history record and 1-credit debit commit together; a balance race is
	// caught here and leaves no image behind
	if _, err := s.store.Dispatch(store.RecordGeneration{Image: record}); err != nil {
		return models.GeneratedImage{}, err
	}
	return record, nil
}

func (s *GenerationService) imageRef(ctx context.Context, img *imagen.Image) (string, error) {
	if s.uploader != nil {
		url, err := s.uploader.Upload(ctx, img.Data, img.Mime)
		if err != nil {
			return "", fmt.Errorf("store image: %w", err)
		}
		return url, nil
	}
	return "data:" + img.Mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

func (s *GenerationService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *GenerationService) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}
