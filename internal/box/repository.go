package box

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"shippingbox/internal/kv"
)

// StorageKey is the single key the whole list lives under.
const StorageKey = "shipping_boxes"

// BlobRepository stores the full list as one JSON array under StorageKey and
// rewrites it on every append.
type BlobRepository struct {
	store kv.Store
}

func NewBlobRepository(store kv.Store) *BlobRepository {
	return &BlobRepository{store: store}
}

func (r *BlobRepository) Append(ctx context.Context, b Box) error {
	err := r.store.Update(ctx, StorageKey, func(old []byte, found bool) ([]byte, error) {
		boxes, err := decodeBoxes(old, found)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(boxes, b))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

func (r *BlobRepository) ListAll(ctx context.Context) ([]Box, error) {
	raw, found, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieve, err)
	}
	boxes, err := decodeBoxes(raw, found)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieve, err)
	}
	return boxes, nil
}

func decodeBoxes(raw []byte, found bool) ([]Box, error) {
	boxes := []Box{}
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return boxes, nil
	}
	if err := json.Unmarshal(raw, &boxes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", StorageKey, err)
	}
	if boxes == nil {
		boxes = []Box{}
	}
	return boxes, nil
}
