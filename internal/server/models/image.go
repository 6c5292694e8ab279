package models

import (
	"fmt"
	"time"
)

// ParentKind tags the entity an image is attached to.
type ParentKind string

const (
	ParentAsset     ParentKind = "asset"
	ParentEquipment ParentKind = "equipment"
	ParentTask      ParentKind = "task"
	ParentEntry     ParentKind = "entry"
)

// ParseParentKind validates s.
func ParseParentKind(s string) (ParentKind, error) {
	switch k := ParentKind(s); k {
	case ParentAsset, ParentEquipment, ParentTask, ParentEntry:
		return k, nil
	default:
		return "", fmt.Errorf("unknown parent kind %q", s)
	}
}

// ParentRef points at the owner of an image by kind and internal ID.
type ParentRef struct {
	Kind ParentKind
	ID   string
}

func (p ParentRef) String() string { return string(p.Kind) + ":" + p.ID }

const (
	UploadPending   = "pending"
	UploadCompleted = "completed"
)

// Image describes an image blob stored in object storage.
type Image struct {
	ID           string
	UIID         string
	Parent       ParentRef
	StorageKey   string
	Title        string
	UploadStatus string
	CreatedAt    time.Time
}

// ImageUploadTask tells the client where to PUT the image bytes.
type ImageUploadTask struct {
	Image *Image
	URL   string
}
