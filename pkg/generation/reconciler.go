package generation

import (
	"context"
	"errors"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/memory"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/pkg/events"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/replicate"

	"github.com/google/uuid"
)

const defaultFailureMessage = "Generation failed"

type ResultPersister interface {
	Persist(ctx context.Context, sourceURL string, ownerId, designId uuid.UUID) (string, error)
}

// StatusResult is what a poll reports back. ProviderError is set when the provider could
// not be reached; the design is returned unchanged in that case.
type StatusResult struct {
	Design        *entity.Design
	Prediction    *replicate.Prediction
	ProviderError string
}

// Reconciler drives a design through pending -> processing -> completed|failed.
// Poll and webhook observations go through the same Apply, and every state change is a
// conditional update keyed on the current prediction id, so the two paths may race freely.
type Reconciler struct {
	uowFactory  unitofwork.RepositoryFactory
	generator   ImageGenerator
	persister   ResultPersister
	ledger      *ledger.Ledger
	publisher   events.Publisher
	cache       *memory.PredictionCache
	callbackURL string
	logger      logger.ILogger
}

func NewReconciler(
	uowFactory unitofwork.RepositoryFactory,
	generator ImageGenerator,
	persister ResultPersister,
	ledger *ledger.Ledger,
	publisher events.Publisher,
	cache *memory.PredictionCache,
	callbackURL string,
	logger logger.ILogger,
) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{
		uowFactory:  uowFactory,
		generator:   generator,
		persister:   persister,
		ledger:      ledger,
		publisher:   publisher,
		cache:       cache,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

func (r *Reconciler) loadOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, designId uuid.UUID) (*entity.Design, error) {
	design, err := uow.DesignRepository().FindOne(ctx, specification.ByID{ID: designId})
	if err != nil {
		return nil, err
	}
	if design == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "design %s not found", designId)
	}
	if design.UserId != userId {
		return nil, apperror.Wrap(apperror.ErrForbidden, "design %s belongs to another user", designId)
	}
	return design, nil
}

// Submit starts a generation job for a pending design.
func (r *Reconciler) Submit(ctx context.Context, userId, designId uuid.UUID) (*entity.Design, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	design, err := r.loadOwned(ctx, uow, userId, designId)
	if err != nil {
		return nil, err
	}
	if design.Status != entity.DesignStatusPending {
		return nil, apperror.Wrap(apperror.ErrConflict, "design is %s, only pending designs can be submitted", design.Status)
	}
	if design.ImageUrl == "" {
		return nil, apperror.Wrap(apperror.ErrValidation, "design has no source image")
	}

	prompt := BuildPrompt(design.Style, design.RoomType, design.Description)
	prediction, err := r.generator.Submit(ctx, design.ImageUrl, prompt, r.callbackURL)
	if err != nil {
		r.logger.Warn("RECONCILER", "Provider rejected submission, design stays pending", map[string]interface{}{
			"design_id": design.Id.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	ok, err := uow.DesignRepository().MarkProcessing(ctx, design.Id, prediction.ID)
	if err != nil {
		r.logger.Error("RECONCILER", "Failed to record prediction, provider job is orphaned", map[string]interface{}{
			"design_id":     design.Id.String(),
			"prediction_id": prediction.ID,
			"error":         err.Error(),
		})
		return nil, err
	}
	if !ok {
		r.logger.Warn("RECONCILER", "Lost submit race, provider job is orphaned", map[string]interface{}{
			"design_id":     design.Id.String(),
			"prediction_id": prediction.ID,
		})
		return nil, apperror.Wrap(apperror.ErrConflict, "design %s was submitted concurrently", design.Id)
	}

	design.Status = entity.DesignStatusProcessing
	design.PredictionId = &prediction.ID
	design.ErrorMessage = nil

	r.logger.Info("RECONCILER", "Design submitted", map[string]interface{}{
		"design_id":     design.Id.String(),
		"prediction_id": prediction.ID,
	})
	r.publish(ctx, events.DesignSubmitted, design)

	if prediction.IsTerminal() {
		updated, _, err := r.Apply(ctx, design, prediction)
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return design, nil
}

// Apply folds one provider observation into the design. It reports whether this call
// moved the design; a discarded or lost update returns false with no error.
func (r *Reconciler) Apply(ctx context.Context, design *entity.Design, obs *replicate.Prediction) (*entity.Design, bool, error) {
	if design.Status.IsTerminal() || !design.HasPrediction(obs.ID) {
		r.logger.Debug("RECONCILER", "Discarding observation", map[string]interface{}{
			"design_id":     design.Id.String(),
			"status":        string(design.Status),
			"prediction_id": obs.ID,
		})
		return design, false, nil
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	repo := uow.DesignRepository()

	var (
		ok        bool
		err       error
		eventType string
	)
	switch obs.State() {
	case replicate.StateSucceeded:
		output := obs.OutputURL()
		if output == "" {
			ok, err = repo.MarkFailed(ctx, design.Id, obs.ID, failureMessage(obs), obs.Snapshot())
			eventType = events.DesignFailed
			break
		}
		ok, err = repo.MarkCompleted(ctx, design.Id, obs.ID, r.persist(ctx, design, output), obs.Snapshot())
		eventType = events.DesignCompleted
	case replicate.StateFailed:
		ok, err = repo.MarkFailed(ctx, design.Id, obs.ID, failureMessage(obs), obs.Snapshot())
		eventType = events.DesignFailed
	default:
		return design, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	updated, err := repo.FindOne(ctx, specification.ByID{ID: design.Id})
	if err != nil {
		return nil, false, err
	}
	if updated == nil {
		return nil, false, apperror.Wrap(apperror.ErrNotFound, "design %s not found", design.Id)
	}
	if !ok {
		return updated, false, nil
	}

	r.logger.Info("RECONCILER", "Design reached terminal state", map[string]interface{}{
		"design_id":     updated.Id.String(),
		"prediction_id": obs.ID,
		"status":        string(updated.Status),
	})
	r.publish(ctx, eventType, updated)
	return updated, true, nil
}

// persist never fails: on error the provider URL is kept as the result.
func (r *Reconciler) persist(ctx context.Context, design *entity.Design, output string) string {
	if r.persister == nil {
		return output
	}
	url, err := r.persister.Persist(ctx, output, design.UserId, design.Id)
	if err != nil {
		r.logger.Warn("RECONCILER", "Keeping provider URL, result persistence failed", map[string]interface{}{
			"design_id": design.Id.String(),
			"error":     err.Error(),
		})
		return output
	}
	return url
}

func failureMessage(obs *replicate.Prediction) string {
	if msg := obs.ErrorMessage(); msg != "" {
		return msg
	}
	return defaultFailureMessage
}

// Poll reads the design and, while it is processing, asks the provider for news.
// predictionHint, when set, must match the design's current prediction for a fetch to happen.
func (r *Reconciler) Poll(ctx context.Context, userId, designId uuid.UUID, predictionHint string) (*StatusResult, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	design, err := r.loadOwned(ctx, uow, userId, designId)
	if err != nil {
		return nil, err
	}

	if design.Status != entity.DesignStatusProcessing || design.PredictionId == nil {
		return &StatusResult{Design: design}, nil
	}
	if predictionHint != "" && !design.HasPrediction(predictionHint) {
		return &StatusResult{Design: design}, nil
	}

	prediction, err := r.fetchStatus(ctx, *design.PredictionId)
	if err != nil {
		r.logger.Warn("RECONCILER", "Status fetch failed", map[string]interface{}{
			"design_id":     design.Id.String(),
			"prediction_id": *design.PredictionId,
			"error":         err.Error(),
		})
		return &StatusResult{Design: design, ProviderError: err.Error()}, nil
	}

	updated, _, err := r.Apply(ctx, design, prediction)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Design: updated, Prediction: prediction}, nil
}

func (r *Reconciler) fetchStatus(ctx context.Context, predictionID string) (*replicate.Prediction, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(predictionID); ok {
			return cached, nil
		}
	}
	prediction, err := r.generator.FetchStatus(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Save(prediction)
	}
	return prediction, nil
}

// HandleWebhook applies a pushed prediction. Unknown prediction ids are acknowledged.
func (r *Reconciler) HandleWebhook(ctx context.Context, obs *replicate.Prediction) error {
	if obs == nil || obs.ID == "" {
		return apperror.Wrap(apperror.ErrValidation, "webhook payload has no prediction id")
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	design, err := uow.DesignRepository().FindOne(ctx, specification.ByPredictionID{PredictionID: obs.ID})
	if err != nil {
		return err
	}
	if design == nil {
		r.logger.Warn("RECONCILER", "Webhook for unknown prediction", map[string]interface{}{
			"prediction_id": obs.ID,
			"status":        obs.Status,
		})
		return nil
	}

	if r.cache != nil {
		r.cache.Save(obs)
	}
	_, _, err = r.Apply(ctx, design, obs)
	return err
}

// Retry spends a credit to run a failed design again under a new prediction.
func (r *Reconciler) Retry(ctx context.Context, userId, designId uuid.UUID) (*entity.Design, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	design, err := r.loadOwned(ctx, uow, userId, designId)
	if err != nil {
		return nil, err
	}
	if design.Status != entity.DesignStatusFailed {
		return nil, apperror.Wrap(apperror.ErrConflict, "only failed designs can be retried, design is %s", design.Status)
	}

	reserved, err := r.ledger.TryReserveOne(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, apperror.ErrInsufficientCredits
	}

	reset, err := uow.DesignRepository().ResetForRetry(ctx, design.Id)
	if err != nil {
		return nil, err
	}
	if !reset {
		return nil, apperror.Wrap(apperror.ErrConflict, "design %s changed during retry", design.Id)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	r.logger.Info("RECONCILER", "Design reset for retry", map[string]interface{}{
		"design_id": design.Id.String(),
	})
	return r.Submit(ctx, userId, designId)
}

func (r *Reconciler) publish(ctx context.Context, eventType string, d *entity.Design) {
	err := r.publisher.Publish(ctx, events.New(eventType, DesignEventPayload(d)))
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("RECONCILER", "Failed to publish event", map[string]interface{}{
			"event":     eventType,
			"design_id": d.Id.String(),
			"error":     err.Error(),
		})
	}
}

// DesignEventPayload is the body of every DESIGN_* event.
func DesignEventPayload(d *entity.Design) map[string]interface{} {
	payload := map[string]interface{}{
		"design_id": d.Id.String(),
		"user_id":   d.UserId.String(),
		"status":    string(d.Status),
	}
	if d.PredictionId != nil {
		payload["prediction_id"] = *d.PredictionId
	}
	if d.ResultUrl != nil {
		payload["result_url"] = *d.ResultUrl
	}
	if d.ErrorMessage != nil {
		payload["error_message"] = *d.ErrorMessage
	}
	return payload
}
