package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/metrics"
	"github.com/dmitrijs2005/equipkeeper/internal/server/cascade"
	"github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// BlobDeleter removes image bytes. Deleting a missing key must succeed.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CascadeReport tells what a cascading delete removed.
type CascadeReport struct {
	Root    cascade.NodeRef
	Deleted map[cascade.Kind]int
}

// CascadeService deletes an entity together with everything below it.
//
// One cascade runs in one transaction: the subtree is collected into a
// cascade.Tree, validated, deleted children first, and the image blobs are
// removed concurrently before commit. Any failure rolls back and the whole
// cascade starts over, up to the configured number of attempts. Invariant
// violations are never retried.
type CascadeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	blobs       BlobDeleter
	logger      logging.Logger
	metrics     *metrics.Metrics
	retries     int
	concurrency int
}

func NewCascadeService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, blobs BlobDeleter,
	logger logging.Logger, mt *metrics.Metrics, cfg *config.Config) *CascadeService {
	return &CascadeService{
		db:          db,
		repomanager: m,
		access:      access,
		blobs:       blobs,
		logger:      logger,
		metrics:     mt,
		retries:     cfg.CascadeRetries,
		concurrency: cfg.BlobDeleteConcurrency,
	}
}

type planFunc func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error

// DeleteAsset removes an asset, its access links, equipment, tasks,
// entries and every image attached to any of them.
func (s *CascadeService) DeleteAsset(ctx context.Context, userID, assetUIID string) (*CascadeReport, error) {
	asset, err := s.access.AuthorizeMutation(ctx, userID, assetUIID, VerbDelete)
	if err != nil {
		return nil, err
	}

	root := cascade.NodeRef{Kind: cascade.KindAsset, ID: asset.ID}
	return s.run(ctx, root, func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error {
		if err := s.access.verifySingleOwner(ctx, q, asset.ID); err != nil {
			return err
		}
		return s.planAsset(ctx, q, t, asset.ID)
	})
}

// DeleteEquipment removes an equipment with its tasks, entries (orphans
// included) and images.
func (s *CascadeService) DeleteEquipment(ctx context.Context, userID, equipmentUIID string) (*CascadeReport, error) {
	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, equipmentUIID, VerbDelete)
	if err != nil {
		return nil, err
	}

	root := cascade.NodeRef{Kind: cascade.KindEquipment, ID: eq.ID}
	return s.run(ctx, root, func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error {
		return s.planEquipment(ctx, q, t, eq.ID)
	})
}

// DeleteTask removes a task with its entries and images. Orphan entries
// and sibling tasks of the equipment are untouched.
func (s *CascadeService) DeleteTask(ctx context.Context, userID, taskUIID string) (*CascadeReport, error) {
	task, _, err := s.access.AuthorizeTask(ctx, userID, taskUIID, VerbDelete)
	if err != nil {
		return nil, err
	}

	root := cascade.NodeRef{Kind: cascade.KindTask, ID: task.ID}
	return s.run(ctx, root, func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error {
		return s.planTask(ctx, q, t, task.EquipmentID, task.ID)
	})
}

// DeleteEntry removes an entry and its images.
func (s *CascadeService) DeleteEntry(ctx context.Context, userID, entryUIID string) (*CascadeReport, error) {
	entry, _, err := s.access.AuthorizeEntry(ctx, userID, entryUIID, VerbDelete)
	if err != nil {
		return nil, err
	}

	root := cascade.NodeRef{Kind: cascade.KindEntry, ID: entry.ID}
	return s.run(ctx, root, func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error {
		return s.addImages(ctx, q, t, root)
	})
}

// DeleteImage removes one image row and its blob.
func (s *CascadeService) DeleteImage(ctx context.Context, userID, imageUIID string) (*CascadeReport, error) {
	img, err := s.repomanager.Images(s.db).GetByUIID(ctx, imageUIID)
	if err != nil {
		return nil, notFound("image", imageUIID, err)
	}
	if err := s.access.authorizeImage(ctx, userID, img, VerbDelete); err != nil {
		return nil, err
	}

	root := cascade.NodeRef{Kind: cascade.KindImage, ID: img.ID}
	return s.run(ctx, root, func(ctx context.Context, q dbx.DBTX, t *cascade.Tree) error {
		n, _ := t.Get(root)
		n.StorageKey = img.StorageKey
		return nil
	})
}

func (s *CascadeService) run(ctx context.Context, root cascade.NodeRef, plan planFunc) (*CascadeReport, error) {
	start := time.Now()
	defer func() {
		s.metrics.CascadeDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		report  *CascadeReport
		attempt int
	)
	err := dbx.WithTxRetry(ctx, s.db, s.retries, func(ctx context.Context, tx dbx.DBTX) error {
		attempt++
		if attempt > 1 {
			s.metrics.CascadeRetries.Inc()
			s.logger.Warn(ctx, "retrying cascade", "root", root.String(), "attempt", attempt)
		}

		t := cascade.New(root)
		if err := plan(ctx, tx, t); err != nil {
			if errors.Is(err, common.ErrInvariantViolation) {
				return dbx.Stop(err)
			}
			return err
		}
		if err := t.Validate(); err != nil {
			return dbx.Stop(reportInvariant(ctx, s.logger, s.metrics, err))
		}

		if err := s.deleteRows(ctx, tx, t); err != nil {
			return err
		}
		if err := s.deleteBlobs(ctx, t); err != nil {
			return err
		}

		report = &CascadeReport{Root: root, Deleted: t.Counts()}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "cascade failed", "root", root.String(), "attempts", attempt, "error", err)
		return nil, fmt.Errorf("delete %s: %w", root, err)
	}

	for kind, n := range report.Deleted {
		s.metrics.CascadeDeleted.WithLabelValues(string(kind)).Add(float64(n))
	}
	s.logger.Info(ctx, "cascade deleted", "root", root.String(),
		"equipment", report.Deleted[cascade.KindEquipment],
		"tasks", report.Deleted[cascade.KindTask],
		"entries", report.Deleted[cascade.KindEntry],
		"images", report.Deleted[cascade.KindImage])
	return report, nil
}

func (s *CascadeService) deleteRows(ctx context.Context, tx dbx.DBTX, t *cascade.Tree) error {
	for _, n := range t.PostOrder() {
		var err error
		switch n.Ref.Kind {
		case cascade.KindImage:
			err = s.repomanager.Images(tx).Delete(ctx, n.Ref.ID)
		case cascade.KindEntry:
			err = s.repomanager.Entries(tx).Delete(ctx, n.Ref.ID)
		case cascade.KindTask:
			err = s.repomanager.Tasks(tx).Delete(ctx, n.Ref.ID)
		case cascade.KindEquipment:
			err = s.repomanager.Equipments(tx).Delete(ctx, n.Ref.ID)
		case cascade.KindAccess:
			err = s.repomanager.Accesses(tx).Delete(ctx, n.AssetID, n.UserID)
		case cascade.KindAsset:
			err = s.repomanager.Assets(tx).Delete(ctx, n.Ref.ID)
		default:
			err = fmt.Errorf("unknown node kind %q", n.Ref.Kind)
		}
		if err != nil {
			return fmt.Errorf("delete %s: %w", n.Ref, err)
		}
	}
	return nil
}

func (s *CascadeService) deleteBlobs(ctx context.Context, t *cascade.Tree) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.concurrency, 1))

	for _, n := range t.OfKind(cascade.KindImage) {
		if n.StorageKey == "" {
			continue
		}
		key := n.StorageKey
		g.Go(func() error {
			return s.blobs.Delete(gctx, key)
		})
	}
	return g.Wait()
}

func (s *CascadeService) planAsset(ctx context.Context, q dbx.DBTX, t *cascade.Tree, assetID string) error {
	root := cascade.NodeRef{Kind: cascade.KindAsset, ID: assetID}

	links, err := s.repomanager.Accesses(q).ListByAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("list access links: %w", err)
	}
	for _, l := range links {
		if err := t.Add(cascade.Node{
			Ref:     cascade.NodeRef{Kind: cascade.KindAccess, ID: l.AssetID + "/" + l.UserID},
			Parent:  cascade.NodeRef{Kind: cascade.KindAsset, ID: l.AssetID},
			AssetID: l.AssetID,
			UserID:  l.UserID,
		}); err != nil {
			return err
		}
	}

	if err := s.addImages(ctx, q, t, root); err != nil {
		return err
	}

	eqs, err := s.repomanager.Equipments(q).ListByAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("list equipment: %w", err)
	}
	for _, eq := range eqs {
		if err := t.Add(cascade.Node{
			Ref:    cascade.NodeRef{Kind: cascade.KindEquipment, ID: eq.ID},
			Parent: cascade.NodeRef{Kind: cascade.KindAsset, ID: eq.AssetID},
		}); err != nil {
			return err
		}
		if err := s.planEquipment(ctx, q, t, eq.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *CascadeService) planEquipment(ctx context.Context, q dbx.DBTX, t *cascade.Tree, equipmentID string) error {
	if err := s.addImages(ctx, q, t, cascade.NodeRef{Kind: cascade.KindEquipment, ID: equipmentID}); err != nil {
		return err
	}

	tasks, err := s.repomanager.Tasks(q).ListByEquipment(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		ref := cascade.NodeRef{Kind: cascade.KindTask, ID: task.ID}
		if err := t.Add(cascade.Node{
			Ref:    ref,
			Parent: cascade.NodeRef{Kind: cascade.KindEquipment, ID: task.EquipmentID},
		}); err != nil {
			return err
		}
		if err := s.addImages(ctx, q, t, ref); err != nil {
			return err
		}
	}

	// Orphan entries hang directly under the equipment.
	entries, err := s.repomanager.Entries(q).ListByEquipment(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	return s.addEntries(ctx, q, t, entries)
}

func (s *CascadeService) planTask(ctx context.Context, q dbx.DBTX, t *cascade.Tree, equipmentID, taskID string) error {
	if err := s.addImages(ctx, q, t, cascade.NodeRef{Kind: cascade.KindTask, ID: taskID}); err != nil {
		return err
	}

	entries, err := s.repomanager.Entries(q).ListByTask(ctx, equipmentID, taskID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	return s.addEntries(ctx, q, t, entries)
}

func (s *CascadeService) addEntries(ctx context.Context, q dbx.DBTX, t *cascade.Tree, entries []*models.Entry) error {
	for _, e := range entries {
		parent := cascade.NodeRef{Kind: cascade.KindEquipment, ID: e.EquipmentID}
		if !e.IsOrphan() {
			parent = cascade.NodeRef{Kind: cascade.KindTask, ID: *e.TaskID}
		}

		ref := cascade.NodeRef{Kind: cascade.KindEntry, ID: e.ID}
		if err := t.Add(cascade.Node{Ref: ref, Parent: parent}); err != nil {
			return err
		}
		if err := s.addImages(ctx, q, t, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *CascadeService) addImages(ctx context.Context, q dbx.DBTX, t *cascade.Tree, parent cascade.NodeRef) error {
	imgs, err := s.repomanager.Images(q).ListByParent(ctx, models.ParentRef{Kind: models.ParentKind(parent.Kind), ID: parent.ID})
	if err != nil {
		return fmt.Errorf("list images of %s: %w", parent, err)
	}
	for _, img := range imgs {
		if err := t.Add(cascade.Node{
			Ref:        cascade.NodeRef{Kind: cascade.KindImage, ID: img.ID},
			Parent:     cascade.NodeRef{Kind: cascade.KindOf(img.Parent.Kind), ID: img.Parent.ID},
			StorageKey: img.StorageKey,
		}); err != nil {
			return err
		}
	}
	return nil
}
