package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/model"
)

// ErrNotFound is returned when an item does not exist in the scope
var ErrNotFound = errors.New("item not found")

// ItemRepo is the persistence surface used by the tracker and the
// consolidation engine. Every call is confined to one scope.
type ItemRepo interface {
	Add(ctx context.Context, item *model.Item) error
	Get(ctx context.Context, scope string, id uint) (*model.Item, error)
	List(ctx context.Context, scope string, filter ListFilter) ([]model.Item, error)
	SetStatus(ctx context.Context, scope string, id uint, status string) error
	Delete(ctx context.Context, scope string, id uint) error

	Labels(ctx context.Context, scope string) ([]string, error)
	LabelCounts(ctx context.Context, scope string) ([]model.LabelCount, error)
	LabelTexts(ctx context.Context, scope string) ([]model.LabelText, error)
	Relabel(ctx context.Context, scope string, renames []model.Rename) (int64, error)
}

// ListFilter narrows List; zero values match everything
type ListFilter struct {
	Label  string
	Status string
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &itemRepo{db: db, log: baseLog.With("repo", "ItemRepo")}
}

func (r *itemRepo) Add(ctx context.Context, item *model.Item) error {
	if item.SessionID == "" {
		item.SessionID = model.DefaultScope
	}
	if item.Status == "" {
		item.Status = model.StatusOpen
	}
	if item.Priority == 0 {
		item.Priority = 3
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *itemRepo) Get(ctx context.Context, scope string, id uint) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).Where("session_id = ? AND id = ?", scope, id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) List(ctx context.Context, scope string, filter ListFilter) ([]model.Item, error) {
	q := r.db.WithContext(ctx).Where("session_id = ?", scope)
	if filter.Label != "" {
		q = q.Where("label = ?", filter.Label)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var items []model.Item
	if err := q.Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) SetStatus(ctx context.Context, scope string, id uint, status string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("session_id = ? AND id = ?", scope, id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, scope string, id uint) error {
	res := r.db.WithContext(ctx).Where("session_id = ? AND id = ?", scope, id).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type labelRow struct {
	Label   string
	Count   int
	FirstID uint
}

func (r *itemRepo) labelRows(ctx context.Context, scope string) ([]labelRow, error) {
	var rows []labelRow
	err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Select("label, COUNT(*) AS count, MIN(id) AS first_id").
		Where("session_id = ? AND label <> ''", scope).
		Group("label").
		Order("first_id").
		Scan(&rows).Error
	return rows, err
}

// Labels returns the distinct labels of a scope in first-seen order
func (r *itemRepo) Labels(ctx context.Context, scope string) ([]string, error) {
	rows, err := r.labelRows(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Label
	}
	return out, nil
}

func (r *itemRepo) LabelCounts(ctx context.Context, scope string) ([]model.LabelCount, error) {
	rows, err := r.labelRows(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]model.LabelCount, len(rows))
	for i, row := range rows {
		out[i] = model.LabelCount{Label: row.Label, Count: row.Count}
	}
	return out, nil
}

func (r *itemRepo) LabelTexts(ctx context.Context, scope string) ([]model.LabelText, error) {
	var out []model.LabelText
	err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Select("label, text").
		Where("session_id = ? AND label <> ''", scope).
		Order("id").
		Scan(&out).Error
	return out, err
}

// Relabel applies every rename in one transaction; either all land or none
func (r *itemRepo) Relabel(ctx context.Context, scope string, renames []model.Rename) (int64, error) {
	if len(renames) == 0 {
		return 0, nil
	}
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved = 0
		for _, rn := range renames {
			if rn.From == rn.To {
				continue
			}
			res := tx.Model(&model.Item{}).
				Where("session_id = ? AND label = ?", scope, rn.From).
				Update("label", rn.To)
			if res.Error != nil {
				return fmt.Errorf("relabel %q -> %q: %w", rn.From, rn.To, res.Error)
			}
			moved += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Info("labels merged", "scope", scope, "renames", len(renames), "items", moved)
	return moved, nil
}
