package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/memory"
	"ai-interior-design-be/internal/repository/repotest"
	"ai-interior-design-be/pkg/events"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/replicate"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testCallbackURL = "https://api.example.com/api/webhooks/replicate"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakePersister struct {
	mu    sync.Mutex
	url   string
	err   error
	calls int
}

func (f *fakePersister) Persist(_ context.Context, sourceURL string, ownerId, designId uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", &PersistenceError{SourceURL: sourceURL, Err: f.err}
	}
	return f.url, nil
}

type harness struct {
	store     *repotest.Store
	generator *MockImageGenerator
	persister *fakePersister
	bus       *recordingPublisher
	rec       *Reconciler
	user      *entity.User
}

func newHarness(t *testing.T, cache *memory.PredictionCache) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		store:     repotest.NewStore(),
		generator: NewMockImageGenerator(ctrl),
		persister: &fakePersister{url: "https://blob.example.com/results/final.png"},
		bus:       &recordingPublisher{},
	}
	log := logger.NewNopLogger()
	h.rec = NewReconciler(h.store, h.generator, h.persister, ledger.New(log), h.bus, cache, testCallbackURL, log)
	h.user = h.store.SeedUser(1)
	return h
}

func (h *harness) seedDesign(status entity.DesignStatus, predictionId string) *entity.Design {
	d := entity.Design{
		UserId:   h.user.Id,
		ImageUrl: "https://blob.example.com/rooms/room.jpg",
		Style:    "modern",
		RoomType: "living_room",
		Status:   status,
	}
	if predictionId != "" {
		d.PredictionId = &predictionId
	}
	return h.store.SeedDesign(d)
}

func prediction(id, status string, output interface{}, errMsg string) *replicate.Prediction {
	p := &replicate.Prediction{ID: id, Status: status}
	if output != nil {
		p.Output, _ = json.Marshal(output)
	}
	if errMsg != "" {
		p.Error, _ = json.Marshal(errMsg)
	}
	return p
}

func TestReconciler_Submit(t *testing.T) {
	h := newHarness(t, nil)
	design := h.seedDesign(entity.DesignStatusPending, "")

	h.generator.EXPECT().
		Submit(gomock.Any(), design.ImageUrl, "Interior design in modern style for a living room", testCallbackURL).
		Return(prediction("pred_1", replicate.StateStarting, nil, ""), nil)

	got, err := h.rec.Submit(context.Background(), h.user.Id, design.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.DesignStatusProcessing, got.Status)

	stored := h.store.Design(design.Id)
	assert.Equal(t, entity.DesignStatusProcessing, stored.Status)
	assert.True(t, stored.HasPrediction("pred_1"))
	assert.Equal(t, []string{events.DesignSubmitted}, h.bus.types())
}

func TestReconciler_Submit_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness) (userId, designId uuid.UUID)
		wantErr error
	}{
		{
			name: "NotFound",
			setup: func(h *harness) (uuid.UUID, uuid.UUID) {
				return h.user.Id, uuid.New()
			},
			wantErr: apperror.ErrNotFound,
		},
		{
			name: "OtherOwner",
			setup: func(h *harness) (uuid.UUID, uuid.UUID) {
				d := h.seedDesign(entity.DesignStatusPending, "")
				return uuid.New(), d.Id
			},
			wantErr: apperror.ErrForbidden,
		},
		{
			name: "AlreadyProcessing",
			setup: func(h *harness) (uuid.UUID, uuid.UUID) {
				d := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
				return h.user.Id, d.Id
			},
			wantErr: apperror.ErrConflict,
		},
		{
			name: "NoSourceImage",
			setup: func(h *harness) (uuid.UUID, uuid.UUID) {
				d := h.store.SeedDesign(entity.Design{UserId: h.user.Id, Status: entity.DesignStatusPending})
				return h.user.Id, d.Id
			},
			wantErr: apperror.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			userId, designId := tt.setup(h)

			_, err := h.rec.Submit(context.Background(), userId, designId)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, h.bus.types())
		})
	}
}

func TestReconciler_Submit_ProviderFailureKeepsPending(t *testing.T) {
	for _, providerErr := range []error{
		replicate.ErrProviderUnavailable,
		&replicate.ProviderError{StatusCode: 422, Body: "invalid version"},
	} {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusPending, "")
		h.generator.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, providerErr)

		_, err := h.rec.Submit(context.Background(), h.user.Id, design.Id)
		assert.ErrorIs(t, err, providerErr)

		stored := h.store.Design(design.Id)
		assert.Equal(t, entity.DesignStatusPending, stored.Status)
		assert.Nil(t, stored.PredictionId)
	}
}

func TestReconciler_Submit_LostRace(t *testing.T) {
	h := newHarness(t, nil)
	design := h.seedDesign(entity.DesignStatusPending, "")
	ctx := context.Background()

	h.generator.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _, _ string) (*replicate.Prediction, error) {
			_, err := h.store.NewUnitOfWork(ctx).DesignRepository().MarkProcessing(ctx, design.Id, "pred_winner")
			require.NoError(t, err)
			return prediction("pred_loser", replicate.StateStarting, nil, ""), nil
		})

	_, err := h.rec.Submit(ctx, h.user.Id, design.Id)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.True(t, h.store.Design(design.Id).HasPrediction("pred_winner"))
}

func TestReconciler_Apply_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		obs         *replicate.Prediction
		persistErr  error
		wantStatus  entity.DesignStatus
		wantResult  string
		wantError   string
		wantChanged bool
		wantEvents  []string
	}{
		{
			name:        "Succeeded",
			obs:         prediction("pred_1", "succeeded", []string{"https://provider/img.png"}, ""),
			wantStatus:  entity.DesignStatusCompleted,
			wantResult:  "https://blob.example.com/results/final.png",
			wantChanged: true,
			wantEvents:  []string{events.DesignCompleted},
		},
		{
			name:        "PersistenceFallsBackToProviderURL",
			obs:         prediction("pred_1", "succeeded", "https://provider/img.png", ""),
			persistErr:  errors.New("blob down"),
			wantStatus:  entity.DesignStatusCompleted,
			wantResult:  "https://provider/img.png",
			wantChanged: true,
			wantEvents:  []string{events.DesignCompleted},
		},
		{
			name:        "SucceededWithoutOutput",
			obs:         prediction("pred_1", "succeeded", nil, ""),
			wantStatus:  entity.DesignStatusFailed,
			wantError:   "Generation failed",
			wantChanged: true,
			wantEvents:  []string{events.DesignFailed},
		},
		{
			name:        "Failed",
			obs:         prediction("pred_1", "failed", nil, "NSFW content detected"),
			wantStatus:  entity.DesignStatusFailed,
			wantError:   "NSFW content detected",
			wantChanged: true,
			wantEvents:  []string{events.DesignFailed},
		},
		{
			name:        "Canceled",
			obs:         prediction("pred_1", "canceled", nil, ""),
			wantStatus:  entity.DesignStatusFailed,
			wantError:   "Generation failed",
			wantChanged: true,
			wantEvents:  []string{events.DesignFailed},
		},
		{
			name:       "StillProcessing",
			obs:        prediction("pred_1", "processing", nil, ""),
			wantStatus: entity.DesignStatusProcessing,
		},
		{
			name:       "StalePrediction",
			obs:        prediction("pred_old", "succeeded", []string{"https://provider/old.png"}, ""),
			wantStatus: entity.DesignStatusProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.persister.err = tt.persistErr
			design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")

			got, changed, err := h.rec.Apply(context.Background(), design, tt.obs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantStatus, got.Status)

			stored := h.store.Design(design.Id)
			assert.Equal(t, tt.wantStatus, stored.Status)
			if tt.wantResult != "" {
				require.NotNil(t, stored.ResultUrl)
				assert.Equal(t, tt.wantResult, *stored.ResultUrl)
				assert.NotNil(t, stored.CompletedAt)
			} else {
				assert.Nil(t, stored.ResultUrl)
			}
			if tt.wantError != "" {
				require.NotNil(t, stored.ErrorMessage)
				assert.Equal(t, tt.wantError, *stored.ErrorMessage)
			} else {
				assert.Nil(t, stored.ErrorMessage)
			}
			if tt.wantEvents == nil {
				assert.Empty(t, h.bus.types())
			} else {
				assert.Equal(t, tt.wantEvents, h.bus.types())
			}
		})
	}
}

func TestReconciler_Apply_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
	obs := prediction("pred_1", "succeeded", []string{"https://provider/img.png"}, "")
	ctx := context.Background()

	first, changed, err := h.rec.Apply(ctx, design, obs)
	require.NoError(t, err)
	require.True(t, changed)

	// Stale in-memory copy, as a concurrent path would hold it.
	_, changed, err = h.rec.Apply(ctx, design, obs)
	require.NoError(t, err)
	assert.False(t, changed)

	// Fresh copy, already terminal.
	again, changed, err := h.rec.Apply(ctx, first, prediction("pred_1", "failed", nil, "late failure"))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, entity.DesignStatusCompleted, again.Status)

	stored := h.store.Design(design.Id)
	assert.Equal(t, entity.DesignStatusCompleted, stored.Status)
	assert.Equal(t, *first.ResultUrl, *stored.ResultUrl)
	assert.Nil(t, stored.ErrorMessage)
	assert.Equal(t, []string{events.DesignCompleted}, h.bus.types())
}

func TestReconciler_PathCommutativity(t *testing.T) {
	obs := prediction("pred_1", "succeeded", []string{"https://provider/img.png"}, "")

	run := func(t *testing.T, pollFirst bool) *entity.Design {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
		ctx := context.Background()

		poll := func() {
			h.generator.EXPECT().FetchStatus(gomock.Any(), "pred_1").Return(obs, nil).MaxTimes(1)
			_, err := h.rec.Poll(ctx, h.user.Id, design.Id, "")
			require.NoError(t, err)
		}
		hook := func() {
			require.NoError(t, h.rec.HandleWebhook(ctx, obs))
		}

		if pollFirst {
			poll()
			hook()
		} else {
			hook()
			poll()
		}
		assert.Len(t, h.bus.types(), 1)
		return h.store.Design(design.Id)
	}

	a := run(t, true)
	b := run(t, false)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, *a.ResultUrl, *b.ResultUrl)
	assert.Equal(t, a.ErrorMessage, b.ErrorMessage)
	assert.Equal(t, a.PredictionId, b.PredictionId)
}

func TestReconciler_WebhookBeforePoll(t *testing.T) {
	h := newHarness(t, nil)
	design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
	ctx := context.Background()

	err := h.rec.HandleWebhook(ctx, prediction("pred_1", "succeeded", []string{"https://provider/img.png"}, ""))
	require.NoError(t, err)

	completed := h.store.Design(design.Id)
	require.Equal(t, entity.DesignStatusCompleted, completed.Status)
	assert.Equal(t, "https://blob.example.com/results/final.png", *completed.ResultUrl)

	// No FetchStatus or Submit expectation: the poll must not touch the provider.
	res, err := h.rec.Poll(ctx, h.user.Id, design.Id, "pred_1")
	require.NoError(t, err)
	assert.Equal(t, entity.DesignStatusCompleted, res.Design.Status)
	assert.Nil(t, res.Prediction)
	assert.Equal(t, completed.UpdatedAt, h.store.Design(design.Id).UpdatedAt)
}

func TestReconciler_HandleWebhook_UnknownPrediction(t *testing.T) {
	h := newHarness(t, nil)
	err := h.rec.HandleWebhook(context.Background(), prediction("pred_unknown", "succeeded", "https://x", ""))
	assert.NoError(t, err)
	assert.Empty(t, h.bus.types())

	err = h.rec.HandleWebhook(context.Background(), &replicate.Prediction{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestReconciler_Poll(t *testing.T) {
	t.Run("PendingDoesNotFetch", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusPending, "")

		res, err := h.rec.Poll(context.Background(), h.user.Id, design.Id, "")
		require.NoError(t, err)
		assert.Equal(t, entity.DesignStatusPending, res.Design.Status)
	})

	t.Run("MismatchedHintDoesNotFetch", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusProcessing, "pred_2")

		res, err := h.rec.Poll(context.Background(), h.user.Id, design.Id, "pred_1")
		require.NoError(t, err)
		assert.Equal(t, entity.DesignStatusProcessing, res.Design.Status)
	})

	t.Run("ProviderErrorReportedWithoutMutation", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
		h.generator.EXPECT().FetchStatus(gomock.Any(), "pred_1").Return(nil, errors.New("dial tcp: i/o timeout"))

		res, err := h.rec.Poll(context.Background(), h.user.Id, design.Id, "")
		require.NoError(t, err)
		assert.Contains(t, res.ProviderError, "i/o timeout")
		assert.Equal(t, entity.DesignStatusProcessing, h.store.Design(design.Id).Status)
	})

	t.Run("Forbidden", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")

		_, err := h.rec.Poll(context.Background(), uuid.New(), design.Id, "")
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("CachedStatusThrottlesProvider", func(t *testing.T) {
		h := newHarness(t, memory.NewPredictionCache(time.Minute))
		design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
		h.generator.EXPECT().FetchStatus(gomock.Any(), "pred_1").
			Return(prediction("pred_1", "processing", nil, ""), nil).Times(1)

		for i := 0; i < 3; i++ {
			res, err := h.rec.Poll(context.Background(), h.user.Id, design.Id, "")
			require.NoError(t, err)
			assert.Equal(t, replicate.StateProcessing, res.Prediction.State())
		}
	})
}

func TestReconciler_Retry(t *testing.T) {
	h := newHarness(t, nil)
	design := h.seedDesign(entity.DesignStatusProcessing, "pred_1")
	ctx := context.Background()

	_, _, err := h.rec.Apply(ctx, design, prediction("pred_1", "failed", nil, "out of memory"))
	require.NoError(t, err)

	h.generator.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(prediction("pred_2", "starting", nil, ""), nil)

	retried, err := h.rec.Retry(ctx, h.user.Id, design.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.DesignStatusProcessing, retried.Status)
	assert.True(t, retried.HasPrediction("pred_2"))
	assert.Equal(t, 0, h.store.User(h.user.Id).Credits)

	// A late webhook for the abandoned prediction must not touch the new attempt.
	require.NoError(t, h.rec.HandleWebhook(ctx, prediction("pred_1", "succeeded", []string{"https://provider/old.png"}, "")))
	stored := h.store.Design(design.Id)
	assert.Equal(t, entity.DesignStatusProcessing, stored.Status)
	assert.True(t, stored.HasPrediction("pred_2"))
	assert.Nil(t, stored.ResultUrl)
	assert.Nil(t, stored.ErrorMessage)
}

func TestReconciler_Retry_Rejections(t *testing.T) {
	t.Run("NotFailed", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusCompleted, "pred_1")

		_, err := h.rec.Retry(context.Background(), h.user.Id, design.Id)
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.Equal(t, 1, h.store.User(h.user.Id).Credits)
	})

	t.Run("NoCredits", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusFailed, "pred_1")
		ctx := context.Background()
		_, err := h.store.NewUnitOfWork(ctx).UserRepository().DecrementCreditIfAvailable(ctx, h.user.Id)
		require.NoError(t, err)

		_, err = h.rec.Retry(ctx, h.user.Id, design.Id)
		assert.ErrorIs(t, err, apperror.ErrInsufficientCredits)
		assert.Equal(t, entity.DesignStatusFailed, h.store.Design(design.Id).Status)
	})

	t.Run("ResetFailureRefundsReservation", func(t *testing.T) {
		h := newHarness(t, nil)
		design := h.seedDesign(entity.DesignStatusFailed, "pred_1")
		h.store.FailNext("designs.ResetForRetry", errors.New("deadlock detected"))

		_, err := h.rec.Retry(context.Background(), h.user.Id, design.Id)
		assert.Error(t, err)
		assert.Equal(t, 1, h.store.User(h.user.Id).Credits)
		assert.Equal(t, entity.DesignStatusFailed, h.store.Design(design.Id).Status)
	})
}
