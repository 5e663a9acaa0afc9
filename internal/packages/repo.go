package packages

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/herovault-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herovault-backend/pkg/db/types"
)

// ErrNotFound is returned by repository lookups that match no row.
var ErrNotFound = errors.New("not found")

// Repository persists package definitions and instances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateDefinition(ctx context.Context, def *models.PackageDefinition) error
	FindDefinition(ctx context.Context, id uuid.UUID) (*models.PackageDefinition, error)
	FindDefinitionForPurchase(ctx context.Context, id uuid.UUID) (*models.PackageDefinition, error)
	ListDefinitions(ctx context.Context, availableOnly bool, createdSince *time.Time) ([]models.PackageDefinition, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.PackageDefinition, error)
	DeleteDefinition(ctx context.Context, id uuid.UUID) error

	CreateInstances(ctx context.Context, instances []models.PackageInstance) error
	FindInstance(ctx context.Context, id uuid.UUID) (*models.PackageInstance, error)
	MarkOpened(ctx context.Context, id uuid.UUID, rewards []uuid.UUID, openedAt time.Time) (bool, error)
	ListUnopened(ctx context.Context, accountID uuid.UUID) ([]models.PackageInstance, error)
	ListUnopenedByDefinition(ctx context.Context, definitionID uuid.UUID) ([]models.PackageInstance, error)
	CountUnopenedByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error)
	DeleteInstancesByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDefinition(ctx context.Context, def *models.PackageDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *repository) FindDefinition(ctx context.Context, id uuid.UUID) (*models.PackageDefinition, error) {
	return r.findDefinition(r.db.WithContext(ctx), id)
}

// FindDefinitionForPurchase takes a share lock on postgres so a concurrent
// retirement flipping availability waits for the purchase to commit.
func (r *repository) FindDefinitionForPurchase(ctx context.Context, id uuid.UUID) (*models.PackageDefinition, error) {
	conn := r.db.WithContext(ctx)
	if conn.Dialector.Name() == "postgres" {
		conn = conn.Clauses(clause.Locking{Strength: "SHARE"})
	}
	return r.findDefinition(conn, id)
}

func (r *repository) findDefinition(conn *gorm.DB, id uuid.UUID) (*models.PackageDefinition, error) {
	var def models.PackageDefinition
	if err := conn.Where("id = ?", id).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

func (r *repository) ListDefinitions(ctx context.Context, availableOnly bool, createdSince *time.Time) ([]models.PackageDefinition, error) {
	query := r.db.WithContext(ctx).Model(&models.PackageDefinition{})
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	if createdSince != nil {
		query = query.Where("created_at >= ?", *createdSince)
	}
	var defs []models.PackageDefinition
	err := query.Order("created_at DESC").Order("id DESC").Find(&defs).Error
	return defs, err
}

func (r *repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*models.PackageDefinition, error) {
	res := r.db.WithContext(ctx).Model(&models.PackageDefinition{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_available": available, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindDefinition(ctx, id)
}

func (r *repository) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PackageDefinition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CreateInstances(ctx context.Context, instances []models.PackageInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&instances).Error
}

func (r *repository) FindInstance(ctx context.Context, id uuid.UUID) (*models.PackageInstance, error) {
	var inst models.PackageInstance
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inst, nil
}

// MarkOpened flips opened and stores rewards only while the instance is still
// unopened. false means another writer got there first or the row is gone.
func (r *repository) MarkOpened(ctx context.Context, id uuid.UUID, rewards []uuid.UUID, openedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PackageInstance{}).
		Where("id = ? AND opened = ?", id, false).
		Updates(map[string]any{
			"opened":    true,
			"rewards":   dbtypes.UUIDArray(rewards),
			"opened_at": openedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListUnopened(ctx context.Context, accountID uuid.UUID) ([]models.PackageInstance, error) {
	var rows []models.PackageInstance
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND opened = ?", accountID, false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListUnopenedByDefinition(ctx context.Context, definitionID uuid.UUID) ([]models.PackageInstance, error) {
	var rows []models.PackageInstance
	err := r.db.WithContext(ctx).
		Where("definition_id = ? AND opened = ?", definitionID, false).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountUnopenedByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PackageInstance{}).
		Where("definition_id = ? AND opened = ?", definitionID, false).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteInstancesByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("definition_id = ?", definitionID).Delete(&models.PackageInstance{})
	return res.RowsAffected, res.Error
}
