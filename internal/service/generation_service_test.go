package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/imagen"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/store"
)

type fakeProvider struct {
	calls   atomic.Int64
	image   *imagen.Image
	err     error
	block   chan struct{} // when set, Generate waits until closed
	started chan struct{} // when set, closed once Generate is entered
	onCall  func(ctx context.Context)
}

func (f *fakeProvider) Generate(ctx context.Context, opts imagen.GenerateOptions) (*imagen.Image, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.onCall != nil {
		f.onCall(ctx)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.image != nil {
		return f.image, nil
	}
	return &imagen.Image{Data: []byte("img"), Mime: "image/jpeg"}, nil
}

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func newTestStore(t *testing.T, credits int) *store.Dispatcher {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return store.NewDispatcher(log, store.Snapshot{
		Users: []models.User{
			{ID: "u1", Name: "Alice", Email: "a@example.com", Credits: credits, Role: models.RoleUser, Status: models.StatusActive},
		},
	})
}

func newGenerationService(t *testing.T, d *store.Dispatcher, provider ImageProvider, uploader ImageUploader) *GenerationService {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGenerationService(log, d, provider, uploader)
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	provider := &fakeProvider{}
	svc := newGenerationService(t, d, provider, nil)

	img, err := svc.Generate(context.Background(), "u1", "a cat", "", "1:1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(img.Src, "data:image/jpeg;base64,"))
	require.Equal(t, "a cat", img.Prompt)

	snap := d.Snapshot()
	u, _ := snap.UserByID("u1")
	require.Equal(t, 9, u.Credits)
	require.Len(t, snap.ImagesForUser("u1"), 1)
}

func TestGenerate_UploaderURL(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	svc := newGenerationService(t, d, &fakeProvider{}, &fakeUploader{url: "https://cdn.example.com/x.jpg"})

	img, err := svc.Generate(context.Background(), "u1", "a cat", "", "")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/x.jpg", img.Src)
}

func TestGenerate_ZeroBalanceRejectedBeforeProviderCall(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 0)
	provider := &fakeProvider{}
	svc := newGenerationService(t, d, provider, nil)

	_, err := svc.Generate(context.Background(), "u1", "a cat", "", "1:1")
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	require.Zero(t, provider.calls.Load())
	require.Empty(t, d.Snapshot().Images)
}

func TestGenerate_InvalidInput(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	provider := &fakeProvider{}
	svc := newGenerationService(t, d, provider, nil)

	_, err := svc.Generate(context.Background(), "u1", "   ", "", "1:1")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Generate(context.Background(), "u1", "a cat", "", "2:1")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	require.Zero(t, provider.calls.Load())
}

func TestGenerate_UnknownUser(t *testing.T) {
	t.Parallel()

	svc := newGenerationService(t, newTestStore(t, 10), &fakeProvider{}, nil)
	_, err := svc.Generate(context.Background(), "ghost", "a cat", "", "1:1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGenerate_ProviderFailureLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	svc := newGenerationService(t, d, &fakeProvider{err: common.ErrProviderUnavailable}, nil)

	_, err := svc.Generate(context.Background(), "u1", "a cat", "", "1:1")
	require.ErrorIs(t, err, common.ErrProviderUnavailable)

	u, _ := d.Snapshot().UserByID("u1")
	require.Equal(t, 10, u.Credits)
	require.Empty(t, d.Snapshot().Images)
}

func TestGenerate_InFlightGuard(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	block := make(chan struct{})
	started := make(chan struct{})
	provider := &fakeProvider{block: block, started: started}
	svc := newGenerationService(t, d, provider, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), "u1", "a cat", "", "1:1")
		done <- err
	}()

	<-started
	_, err := svc.Generate(context.Background(), "u1", "another cat", "", "1:1")
	require.ErrorIs(t, err, common.ErrGenerationInFlight)

	close(block)
	require.NoError(t, <-done)

	// guard released after completion
	_, err = svc.Generate(context.Background(), "u1", "a third cat", "", "1:1")
	require.NoError(t, err)
}

func TestGenerate_CancelledResultDiscarded(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	// the provider "responds" but the user already navigated away
	provider := &fakeProvider{onCall: func(context.Context) { cancel() }}
	svc := newGenerationService(t, d, provider, nil)

	_, err := svc.Generate(ctx, "u1", "a cat", "", "1:1")
	require.ErrorIs(t, err, context.Canceled)

	u, _ := d.Snapshot().UserByID("u1")
	require.Equal(t, 10, u.Credits)
	require.Empty(t, d.Snapshot().Images)
}

func TestGenerate_BalanceRaceCaughtAtCommit(t *testing.T) {
	t.Parallel()

	d := newTestStore(t, 1)
	provider := &fakeProvider{}
	// drain the balance between the pre-check and the commit
	provider.onCall = func(context.Context) {
		_, err := d.Dispatch(store.RemoveCredits{UserID: "u1", Amount: 1})
		if err != nil {
			t.Error(err)
		}
	}
	svc := newGenerationService(t, d, provider, nil)

	_, err := svc.Generate(context.Background(), "u1", "a cat", "", "1:1")
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	require.Empty(t, d.Snapshot().Images)

	u, _ := d.Snapshot().UserByID("u1")
	require.Equal(t, 0, u.Credits)
}
