package repository

import (
	"context"
	"strings"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseFilters contains all filter options for listing cases
type CaseFilters struct {
	Status        *domain.CaseStatus
	ClientName    *string
	AssignedUser  *string
	Archived      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SearchQuery   *string
}

// CaseSortOption represents available sort options
type CaseSortOption string

const (
	CaseSortByCreatedDesc CaseSortOption = "created_desc"
	CaseSortByCreatedAsc  CaseSortOption = "created_asc"
	CaseSortByUpdatedDesc CaseSortOption = "updated_desc"
	CaseSortByTitleAsc    CaseSortOption = "title_asc"
	CaseSortByBudgetDesc  CaseSortOption = "budget_desc"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Create(ctx context.Context, c *domain.Case) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Case, error) {
	var c domain.Case
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyOrgFilter(ctx, query)
	if err := query.First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDetail loads a case together with its tasks, BOQs and quotations.
func (r *CaseRepository) GetDetail(ctx context.Context, id uuid.UUID) (*domain.Case, error) {
	var c domain.Case
	query := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("BOQs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Quotations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ?", id)
	query = ApplyOrgFilter(ctx, query)
	if err := query.First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) Update(ctx context.Context, c *domain.Case) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

// UpdateStatusIf moves the case status with a guarded UPDATE: the write only
// lands when the row still carries the expected status. Returns the number of
// rows touched so the caller can distinguish a lost race from success.
func (r *CaseRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.CaseStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&domain.Case{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// UpdateStatusIfTx is UpdateStatusIf running inside the caller's transaction.
func (r *CaseRepository) UpdateStatusIfTx(tx *gorm.DB, id uuid.UUID, expected, next domain.CaseStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}
	result := tx.Model(&domain.Case{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// AddSpendingTx applies a cost-center posting as one atomic SQL increment
// inside the caller's transaction. remaining is recomputed in the same
// statement so remaining = budget - spent holds after every commit, whatever
// the interleaving of concurrent posters. The WHERE clause also enforces
// spent <= budget: zero rows affected means the posting would overdraw the
// budget (or the case vanished), and the caller must abort.
func (r *CaseRepository) AddSpendingTx(tx *gorm.DB, id uuid.UUID, amount domain.Cents) (int64, error) {
	result := tx.Model(&domain.Case{}).
		Where("id = ? AND spent_cents + ? <= total_budget_cents", id, int64(amount)).
		Updates(map[string]interface{}{
			"spent_cents":     gorm.Expr("spent_cents + ?", int64(amount)),
			"remaining_cents": gorm.Expr("total_budget_cents - (spent_cents + ?)", int64(amount)),
			"updated_at":      time.Now(),
		})
	return result.RowsAffected, result.Error
}

// SetMasterRecordURL stores the URL of the generated master project document.
func (r *CaseRepository) SetMasterRecordURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"master_record_url": url, "updated_at": time.Now()}).Error
}

// Archive soft-retires a case. Cases are never deleted.
func (r *CaseRepository) Archive(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"archived": true, "updated_at": time.Now()}).Error
}

func (r *CaseRepository) List(ctx context.Context, page, pageSize int, filters *CaseFilters, sortBy CaseSortOption) ([]domain.Case, int64, error) {
	var cases []domain.Case
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Case{})
	query = ApplyOrgFilter(ctx, query)
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.applySorting(query, sortBy)

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&cases).Error

	return cases, total, err
}

func (r *CaseRepository) applyFilters(query *gorm.DB, filters *CaseFilters) *gorm.DB {
	if filters == nil {
		return query.Where("archived = ?", false)
	}

	if filters.Archived != nil {
		query = query.Where("archived = ?", *filters.Archived)
	} else {
		query = query.Where("archived = ?", false)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ClientName != nil {
		query = query.Where("LOWER(client_name) LIKE ?", "%"+strings.ToLower(*filters.ClientName)+"%")
	}
	if filters.AssignedUser != nil {
		// assigned_team is a role->user JSON object; match on the serialized value
		query = query.Where("assigned_team LIKE ?", "%\""+*filters.AssignedUser+"\"%")
	}
	if filters.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filters.CreatedAfter)
	}
	if filters.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filters.CreatedBefore)
	}
	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		term := "%" + strings.ToLower(*filters.SearchQuery) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(client_name) LIKE ?", term, term)
	}

	return query
}

func (r *CaseRepository) applySorting(query *gorm.DB, sortBy CaseSortOption) *gorm.DB {
	switch sortBy {
	case CaseSortByCreatedAsc:
		return query.Order("created_at ASC")
	case CaseSortByUpdatedDesc:
		return query.Order("updated_at DESC")
	case CaseSortByTitleAsc:
		return query.Order("title ASC")
	case CaseSortByBudgetDesc:
		return query.Order("total_budget_cents DESC")
	default:
		return query.Order("created_at DESC")
	}
}

// CountByStatus returns the number of non-archived cases per status,
// used by the workload overview endpoint.
func (r *CaseRepository) CountByStatus(ctx context.Context) (map[domain.CaseStatus]int64, error) {
	type row struct {
		Status domain.CaseStatus
		Count  int64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&domain.Case{}).
		Select("status, COUNT(*) as count").
		Where("archived = ?", false).
		Group("status")
	query = ApplyOrgFilter(ctx, query)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.CaseStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
