package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ai-interior-design-be/internal/dto"
	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/pkg/serverutils"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/pkg/blob"
	"ai-interior-design-be/pkg/generation"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/replicate"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxNameLength   = 40
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type IDesignService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDesignRequest, image *dto.UploadedImage) (*dto.CreateDesignResponse, error)
	Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateDesignRequest) (*dto.GenerateDesignResponse, error)
	GetStatus(ctx context.Context, userId, designId uuid.UUID, predictionHint string) (*dto.DesignStatusResponse, error)
	Retry(ctx context.Context, userId, designId uuid.UUID) (*dto.GenerateDesignResponse, error)
	List(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.DesignListResponse, error)
	Get(ctx context.Context, userId, designId uuid.UUID) (*dto.DesignResponse, error)
	HandleProviderWebhook(ctx context.Context, obs *replicate.Prediction) error
}

type designService struct {
	uowFactory unitofwork.RepositoryFactory
	ledger     *ledger.Ledger
	reconciler *generation.Reconciler
	store      blob.Store
	logger     logger.ILogger
}

func NewDesignService(
	uowFactory unitofwork.RepositoryFactory,
	ledger *ledger.Ledger,
	reconciler *generation.Reconciler,
	store blob.Store,
	logger logger.ILogger,
) IDesignService {
	return &designService{
		uowFactory: uowFactory,
		ledger:     ledger,
		reconciler: reconciler,
		store:      store,
		logger:     logger,
	}
}

// Create charges one credit, stores the room photo and submits it for generation.
// A failed submission leaves the design pending and is reported in SubmitError.
func (s *designService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDesignRequest, image *dto.UploadedImage) (*dto.CreateDesignResponse, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, apperror.Wrap(apperror.ErrValidation, "image is required")
	}
	if !generation.IsKnownRoomType(req.RoomType) {
		return nil, apperror.Wrap(apperror.ErrValidation, "unknown room type %q", req.RoomType)
	}
	if !generation.IsKnownStyle(req.Style) {
		return nil, apperror.Wrap(apperror.ErrValidation, "unknown style %q", req.Style)
	}
	contentType := http.DetectContentType(image.Data)
	if !allowedImageTypes[contentType] {
		return nil, apperror.Wrap(apperror.ErrValidation, "unsupported image type %s", contentType)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Cheap check so a broke user does not leave an orphan upload behind.
	// The reservation below is what actually guards the balance.
	balance, err := s.ledger.Balance(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	if balance < 1 {
		return nil, apperror.ErrInsufficientCredits
	}

	key := fmt.Sprintf("rooms/%s/%d-%s", userId, time.Now().Unix(), uploadName(image.Filename, contentType))
	imageUrl, err := s.store.Put(ctx, key, bytes.NewReader(image.Data), int64(len(image.Data)), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store room image: %w", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	reserved, err := s.ledger.TryReserveOne(ctx, uow, userId)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, apperror.ErrInsufficientCredits
	}

	now := time.Now()
	design := &entity.Design{
		Id:          uuid.New(),
		UserId:      userId,
		ImageUrl:    imageUrl,
		Style:       req.Style,
		Description: trimmedOrNil(req.Description),
		RoomType:    req.RoomType,
		Status:      entity.DesignStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uow.DesignRepository().Create(ctx, design); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("DESIGN", "Design created", map[string]interface{}{
		"design_id": design.Id.String(),
		"user_id":   userId.String(),
	})

	res := &dto.CreateDesignResponse{Id: design.Id, Status: string(design.Status)}
	submitted, err := s.reconciler.Submit(ctx, userId, design.Id)
	if err != nil {
		_, msg := serverutils.StatusFor(err)
		res.SubmitError = msg
		return res, nil
	}
	res.Status = string(submitted.Status)
	res.PredictionId = submitted.PredictionId
	return res, nil
}

func (s *designService) Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateDesignRequest) (*dto.GenerateDesignResponse, error) {
	design, err := s.reconciler.Submit(ctx, userId, req.DesignId)
	if err != nil {
		return nil, err
	}
	return toGenerateResponse(design), nil
}

func (s *designService) GetStatus(ctx context.Context, userId, designId uuid.UUID, predictionHint string) (*dto.DesignStatusResponse, error) {
	result, err := s.reconciler.Poll(ctx, userId, designId, predictionHint)
	if err != nil {
		return nil, err
	}

	res := &dto.DesignStatusResponse{
		Design:        toDesignResponse(result.Design),
		ProviderError: result.ProviderError,
	}
	if p := result.Prediction; p != nil {
		res.Prediction = &dto.PredictionResponse{
			Id:     p.ID,
			Status: p.State(),
			Output: p.OutputURL(),
			Error:  p.ErrorMessage(),
		}
	}
	return res, nil
}

func (s *designService) Retry(ctx context.Context, userId, designId uuid.UUID) (*dto.GenerateDesignResponse, error) {
	design, err := s.reconciler.Retry(ctx, userId, designId)
	if err != nil {
		return nil, err
	}
	return toGenerateResponse(design), nil
}

func (s *designService) List(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.DesignListResponse, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	designs, err := uow.DesignRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}
	total, err := uow.DesignRepository().Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	items := make([]*dto.DesignResponse, 0, len(designs))
	for _, d := range designs {
		items = append(items, toDesignResponse(d))
	}
	return &dto.DesignListResponse{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *designService) Get(ctx context.Context, userId, designId uuid.UUID) (*dto.DesignResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
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
	return toDesignResponse(design), nil
}

func (s *designService) HandleProviderWebhook(ctx context.Context, obs *replicate.Prediction) error {
	return s.reconciler.HandleWebhook(ctx, obs)
}

// uploadName keeps a readable, storage-safe stem of the client's filename.
func uploadName(filename, contentType string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
		if b.Len() >= maxNameLength {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "room"
	}
	return name + blob.ExtensionFor(contentType)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func toGenerateResponse(d *entity.Design) *dto.GenerateDesignResponse {
	res := &dto.GenerateDesignResponse{DesignId: d.Id, Status: string(d.Status)}
	if d.PredictionId != nil {
		res.PredictionId = *d.PredictionId
	}
	return res
}

func toDesignResponse(d *entity.Design) *dto.DesignResponse {
	return &dto.DesignResponse{
		Id:           d.Id,
		ImageUrl:     d.ImageUrl,
		Style:        d.Style,
		RoomType:     d.RoomType,
		Description:  d.Description,
		Status:       string(d.Status),
		PredictionId: d.PredictionId,
		ResultUrl:    d.ResultUrl,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CompletedAt:  d.CompletedAt,
	}
}
