package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

// The helpers below load a child entity by public ID, walk its parent
// references up to the asset and authorize verb there. A child whose
// parent is gone is an invariant violation, not a missing entity.

func notFound(entity, uiid string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%s %s: %w", entity, uiid, common.ErrorNotFound)
	}
	return fmt.Errorf("get %s %s: %w", entity, uiid, err)
}

// AuthorizeEquipment returns the equipment and its asset.
func (s *AccessService) AuthorizeEquipment(ctx context.Context, userID, equipmentUIID string, verb Verb) (*models.Equipment, *models.Asset, error) {
	eq, err := s.repomanager.Equipments(s.db).GetByUIID(ctx, equipmentUIID)
	if err != nil {
		return nil, nil, notFound("equipment", equipmentUIID, err)
	}

	asset, err := s.authorizeByID(ctx, userID, eq.AssetID, verb, "equipment", eq.ID)
	if err != nil {
		return nil, nil, err
	}
	return eq, asset, nil
}

// AuthorizeTask returns the task and its equipment.
func (s *AccessService) AuthorizeTask(ctx context.Context, userID, taskUIID string, verb Verb) (*models.Task, *models.Equipment, error) {
	task, err := s.repomanager.Tasks(s.db).GetByUIID(ctx, taskUIID)
	if err != nil {
		return nil, nil, notFound("task", taskUIID, err)
	}

	eq, err := s.equipmentOf(ctx, "task", task.ID, task.EquipmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.authorizeByID(ctx, userID, eq.AssetID, verb, "equipment", eq.ID); err != nil {
		return nil, nil, err
	}
	return task, eq, nil
}

// AuthorizeEntry returns the entry and its equipment.
func (s *AccessService) AuthorizeEntry(ctx context.Context, userID, entryUIID string, verb Verb) (*models.Entry, *models.Equipment, error) {
	entry, err := s.repomanager.Entries(s.db).GetByUIID(ctx, entryUIID)
	if err != nil {
		return nil, nil, notFound("entry", entryUIID, err)
	}

	eq, err := s.equipmentOf(ctx, "entry", entry.ID, entry.EquipmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.authorizeByID(ctx, userID, eq.AssetID, verb, "equipment", eq.ID); err != nil {
		return nil, nil, err
	}
	return entry, eq, nil
}

// AuthorizeParent resolves an image parent given by kind and public ID.
func (s *AccessService) AuthorizeParent(ctx context.Context, userID string, kind models.ParentKind, uiid string, verb Verb) (models.ParentRef, error) {
	switch kind {
	case models.ParentAsset:
		a, err := s.AuthorizeMutation(ctx, userID, uiid, verb)
		if err != nil {
			return models.ParentRef{}, err
		}
		return models.ParentRef{Kind: kind, ID: a.ID}, nil
	case models.ParentEquipment:
		eq, _, err := s.AuthorizeEquipment(ctx, userID, uiid, verb)
		if err != nil {
			return models.ParentRef{}, err
		}
		return models.ParentRef{Kind: kind, ID: eq.ID}, nil
	case models.ParentTask:
		t, _, err := s.AuthorizeTask(ctx, userID, uiid, verb)
		if err != nil {
			return models.ParentRef{}, err
		}
		return models.ParentRef{Kind: kind, ID: t.ID}, nil
	case models.ParentEntry:
		e, _, err := s.AuthorizeEntry(ctx, userID, uiid, verb)
		if err != nil {
			return models.ParentRef{}, err
		}
		return models.ParentRef{Kind: kind, ID: e.ID}, nil
	default:
		return models.ParentRef{}, common.Validationf("unknown parent kind %q", kind)
	}
}

// authorizeImage authorizes verb on the asset an image hangs under.
func (s *AccessService) authorizeImage(ctx context.Context, userID string, img *models.Image, verb Verb) error {
	assetID, err := s.assetOfParent(ctx, img)
	if err != nil {
		return err
	}
	_, err = s.authorizeByID(ctx, userID, assetID, verb, "image", img.ID)
	return err
}

func (s *AccessService) assetOfParent(ctx context.Context, img *models.Image) (string, error) {
	dangling := func(err error) error {
		if errors.Is(err, common.ErrorNotFound) {
			return s.invariant(ctx, common.NewInvariantError("image", img.ID, "parent "+img.Parent.String()+" does not exist"))
		}
		return fmt.Errorf("get image parent %s: %w", img.Parent, err)
	}

	switch img.Parent.Kind {
	case models.ParentAsset:
		return img.Parent.ID, nil
	case models.ParentEquipment:
		eq, err := s.repomanager.Equipments(s.db).GetByID(ctx, img.Parent.ID)
		if err != nil {
			return "", dangling(err)
		}
		return eq.AssetID, nil
	case models.ParentTask:
		t, err := s.repomanager.Tasks(s.db).GetByID(ctx, img.Parent.ID)
		if err != nil {
			return "", dangling(err)
		}
		eq, err := s.equipmentOf(ctx, "task", t.ID, t.EquipmentID)
		if err != nil {
			return "", err
		}
		return eq.AssetID, nil
	case models.ParentEntry:
		e, err := s.repomanager.Entries(s.db).GetByID(ctx, img.Parent.ID)
		if err != nil {
			return "", dangling(err)
		}
		eq, err := s.equipmentOf(ctx, "entry", e.ID, e.EquipmentID)
		if err != nil {
			return "", err
		}
		return eq.AssetID, nil
	default:
		return "", s.invariant(ctx, common.NewInvariantError("image", img.ID, "unknown parent kind "+string(img.Parent.Kind)))
	}
}

func (s *AccessService) equipmentOf(ctx context.Context, entity, entityID, equipmentID string) (*models.Equipment, error) {
	eq, err := s.repomanager.Equipments(s.db).GetByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invariant(ctx, common.NewInvariantError(entity, entityID, "equipment "+equipmentID+" does not exist"))
		}
		return nil, fmt.Errorf("get equipment %s: %w", equipmentID, err)
	}
	return eq, nil
}
