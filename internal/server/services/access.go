// Package services contains server-side business logic: the ownership
// guard, the cascading lifecycle and the entity services built on them.
// Every operation takes the acting user's ID explicitly.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/metrics"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
)

// Verb is the class of an operation checked by the guard.
type Verb int

const (
	VerbRead Verb = iota
	VerbWrite
	VerbDelete
)

func (v Verb) String() string {
	switch v {
	case VerbRead:
		return "read"
	case VerbWrite:
		return "write"
	case VerbDelete:
		return "delete"
	default:
		return fmt.Sprintf("verb(%d)", int(v))
	}
}

// AccessService decides which assets a user may see or mutate and manages
// the guest links of an asset.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, mt *metrics.Metrics) *AccessService {
	return &AccessService{db: db, repomanager: m, logger: logger, metrics: mt}
}

// ResolveAccessibleAssets returns every asset linked to userID, owned or
// shared. A link pointing at a missing asset is an invariant violation.
func (s *AccessService) ResolveAccessibleAssets(ctx context.Context, userID string) ([]*models.Asset, error) {
	links, err := s.repomanager.Accesses(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list access links: %w", err)
	}

	repo := s.repomanager.Assets(s.db)
	assets := make([]*models.Asset, 0, len(links))
	for _, l := range links {
		a, err := repo.GetByID(ctx, l.AssetID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, s.invariant(ctx, common.NewInvariantError("asset_access", l.AssetID+"/"+l.UserID, "asset does not exist"))
			}
			return nil, fmt.Errorf("get asset %s: %w", l.AssetID, err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// ResolveByPublicID returns the accessible asset with the given UIID.
// Assets that exist but are not linked to userID are reported as not found.
func (s *AccessService) ResolveByPublicID(ctx context.Context, userID, assetUIID string) (*models.Asset, error) {
	return s.AuthorizeMutation(ctx, userID, assetUIID, VerbRead)
}

// AuthorizeMutation resolves the asset and checks that userID may perform
// verb on it. Reads need any link; writes and deletes need the owner link
// and fail with common.ErrorForbidden on a read-only one.
func (s *AccessService) AuthorizeMutation(ctx context.Context, userID, assetUIID string, verb Verb) (*models.Asset, error) {
	asset, err := s.repomanager.Assets(s.db).GetByUIID(ctx, assetUIID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetUIID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("get asset %s: %w", assetUIID, err)
	}

	if err := s.authorize(ctx, userID, asset, verb); err != nil {
		return nil, err
	}
	return asset, nil
}

// authorizeByID is AuthorizeMutation for a child entity that references
// its asset by internal ID. A dangling reference is an invariant violation
// of the referring entity.
func (s *AccessService) authorizeByID(ctx context.Context, userID, assetID string, verb Verb, entity, entityID string) (*models.Asset, error) {
	asset, err := s.repomanager.Assets(s.db).GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invariant(ctx, common.NewInvariantError(entity, entityID, "asset "+assetID+" does not exist"))
		}
		return nil, fmt.Errorf("get asset %s: %w", assetID, err)
	}

	if err := s.authorize(ctx, userID, asset, verb); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *AccessService) authorize(ctx context.Context, userID string, asset *models.Asset, verb Verb) error {
	link, err := s.repomanager.Accesses(s.db).Get(ctx, asset.ID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("asset %s: %w", asset.UIID, common.ErrorNotFound)
		}
		return fmt.Errorf("get access link: %w", err)
	}

	if err := checkLink(link, verb); err != nil {
		s.metrics.AccessDenied.WithLabelValues("readonly").Inc()
		s.logger.Warn(ctx, "mutation rejected", "user", userID, "asset", asset.UIID, "verb", verb.String())
		return fmt.Errorf("asset %s: %w", asset.UIID, err)
	}
	return nil
}

// checkLink fails closed: no link means no mutation.
func checkLink(link *models.AssetAccess, verb Verb) error {
	if verb == VerbRead && link != nil {
		return nil
	}
	if link == nil {
		return fmt.Errorf("%w: no access link", common.ErrorForbidden)
	}
	if link.ReadOnly {
		return fmt.Errorf("%w: read-only access", common.ErrorForbidden)
	}
	return nil
}

// VerifySingleOwner fails with an invariant violation unless the asset has
// exactly one owner link.
func (s *AccessService) VerifySingleOwner(ctx context.Context, assetID string) error {
	return s.verifySingleOwner(ctx, s.db, assetID)
}

func (s *AccessService) verifySingleOwner(ctx context.Context, q dbx.DBTX, assetID string) error {
	n, err := s.repomanager.Accesses(q).CountOwners(ctx, assetID)
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	if n != 1 {
		return s.invariant(ctx, common.NewInvariantError("asset", assetID, fmt.Sprintf("has %d owner links", n)))
	}
	return nil
}

// ShareRequest grants a guest read-only access.
type ShareRequest struct {
	AssetUIID   string `json:"asset" validate:"required"`
	GuestUserID string `json:"guest" validate:"required"`
}

// Share adds a read-only link for the guest. Only the owner may share.
func (s *AccessService) Share(ctx context.Context, userID string, req ShareRequest) (*models.AssetAccess, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	asset, err := s.AuthorizeMutation(ctx, userID, req.AssetUIID, VerbWrite)
	if err != nil {
		return nil, err
	}
	if req.GuestUserID == userID {
		return nil, common.Validationf("asset %s is already owned by %s", asset.UIID, userID)
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, req.GuestUserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user %s: %w", req.GuestUserID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	repo := s.repomanager.Accesses(s.db)
	if _, err := repo.Get(ctx, asset.ID, req.GuestUserID); err == nil {
		return nil, common.Validationf("asset %s is already shared with %s", asset.UIID, req.GuestUserID)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("get access link: %w", err)
	}

	link := &models.AssetAccess{AssetID: asset.ID, UserID: req.GuestUserID, ReadOnly: true}
	if err := repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create access link: %w", err)
	}

	s.logger.Info(ctx, "asset shared", "asset", asset.UIID, "guest", req.GuestUserID)
	return link, nil
}

// Unshare removes a guest link. The owner link cannot be removed this way.
func (s *AccessService) Unshare(ctx context.Context, userID string, req ShareRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	asset, err := s.AuthorizeMutation(ctx, userID, req.AssetUIID, VerbWrite)
	if err != nil {
		return err
	}

	repo := s.repomanager.Accesses(s.db)
	link, err := repo.Get(ctx, asset.ID, req.GuestUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("access link %s/%s: %w", asset.UIID, req.GuestUserID, common.ErrorNotFound)
		}
		return fmt.Errorf("get access link: %w", err)
	}
	if !link.ReadOnly {
		return common.Validationf("the owner link of asset %s cannot be removed", asset.UIID)
	}

	if err := repo.Delete(ctx, asset.ID, req.GuestUserID); err != nil {
		return fmt.Errorf("delete access link: %w", err)
	}

	s.logger.Info(ctx, "asset unshared", "asset", asset.UIID, "guest", req.GuestUserID)
	return nil
}

// invariant logs and counts err when it is an invariant violation and
// returns it unchanged.
func (s *AccessService) invariant(ctx context.Context, err error) error {
	return reportInvariant(ctx, s.logger, s.metrics, err)
}

func reportInvariant(ctx context.Context, logger logging.Logger, m *metrics.Metrics, err error) error {
	var ie *common.InvariantError
	if errors.As(err, &ie) {
		logger.Error(ctx, "invariant violation", "entity", ie.Entity, "id", ie.ID, "reason", ie.Reason)
		m.InvariantViolations.WithLabelValues(ie.Entity).Inc()
	}
	return err
}
