package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/equipkeeper/internal/server/storage"
	"github.com/google/uuid"
)

// Presigner signs direct upload and download URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type AttachImageRequest struct {
	ParentKind string `json:"parentKind" validate:"required,oneof=asset equipment task entry"`
	ParentUIID string `json:"parent" validate:"required"`
	Title      string `json:"title" validate:"max=255"`
}

// ImageService keeps image metadata. Bytes go straight between the client
// and the object store.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	cascade     *CascadeService
	store       Presigner
	clock       maintenance.Clock
	logger      logging.Logger
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, cascade *CascadeService,
	store Presigner, clock maintenance.Clock, logger logging.Logger) *ImageService {
	return &ImageService{db: db, repomanager: m, access: access, cascade: cascade, store: store, clock: clock, logger: logger}
}

// RequestUpload stores a pending image and returns the URL to PUT its
// bytes to.
func (s *ImageService) RequestUpload(ctx context.Context, userID string, req AttachImageRequest) (*models.ImageUploadTask, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	kind, err := models.ParseParentKind(req.ParentKind)
	if err != nil {
		return nil, common.Validationf("%v", err)
	}
	parent, err := s.access.AuthorizeParent(ctx, userID, kind, req.ParentUIID, VerbWrite)
	if err != nil {
		return nil, err
	}

	key := storage.NewStorageKey(s.clock.Now())
	url, err := s.store.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	uiid, err := common.NewUIID()
	if err != nil {
		return nil, fmt.Errorf("generate uiid: %w", err)
	}

	img := &models.Image{
		ID:           uuid.NewString(),
		UIID:         uiid,
		Parent:       parent,
		StorageKey:   key,
		Title:        req.Title,
		UploadStatus: models.UploadPending,
	}
	if err := s.repomanager.Images(s.db).Create(ctx, img); err != nil {
		return nil, fmt.Errorf("error creating image: %w", err)
	}

	s.logger.Info(ctx, "image upload requested", "image", img.UIID, "parent", parent.String())
	return &models.ImageUploadTask{Image: img, URL: url}, nil
}

// MarkUploaded flags the image as completed once the client finished its PUT.
func (s *ImageService) MarkUploaded(ctx context.Context, userID, uiid string) (*models.Image, error) {
	img, err := s.authorized(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Images(s.db).MarkUploaded(ctx, img.ID); err != nil {
		return nil, fmt.Errorf("error marking image uploaded: %w", err)
	}
	img.UploadStatus = models.UploadCompleted
	return img, nil
}

// PresignedGetURL returns a temporary download URL of a completed image.
func (s *ImageService) PresignedGetURL(ctx context.Context, userID, uiid string) (string, error) {
	img, err := s.authorized(ctx, userID, uiid, VerbRead)
	if err != nil {
		return "", err
	}
	if img.UploadStatus != models.UploadCompleted {
		return "", common.Validationf("image %s is not uploaded yet", img.UIID)
	}

	url, err := s.store.PresignGet(ctx, img.StorageKey)
	if err != nil {
		return "", fmt.Errorf("error presigning download: %w", err)
	}
	return url, nil
}

// List returns the images attached to one parent.
func (s *ImageService) List(ctx context.Context, userID string, kind models.ParentKind, parentUIID string) ([]*models.Image, error) {
	parent, err := s.access.AuthorizeParent(ctx, userID, kind, parentUIID, VerbRead)
	if err != nil {
		return nil, err
	}

	imgs, err := s.repomanager.Images(s.db).ListByParent(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("error listing images: %w", err)
	}
	return imgs, nil
}

func (s *ImageService) Delete(ctx context.Context, userID, uiid string) (*CascadeReport, error) {
	return s.cascade.DeleteImage(ctx, userID, uiid)
}

func (s *ImageService) authorized(ctx context.Context, userID, uiid string, verb Verb) (*models.Image, error) {
	img, err := s.repomanager.Images(s.db).GetByUIID(ctx, uiid)
	if err != nil {
		return nil, notFound("image", uiid, err)
	}
	if err := s.access.authorizeImage(ctx, userID, img, verb); err != nil {
		return nil, err
	}
	return img, nil
}
