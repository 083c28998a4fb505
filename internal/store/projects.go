package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
)

type ProjectFilter struct {
	Status        string
	Category      string
	Search        string
	Sort          string
	PublicOnly    bool
	CreatorID     *uuid.UUID
	ParticipantID *uuid.UUID
	Offset        int
	Limit         int
}

// ProjectRow is a project joined with its creator's display name.
type ProjectRow struct {
	models.Project
	CreatorName string `json:"creator_name"`
}

var projectSorts = map[string]string{
	"newest":      "projects.created_at DESC",
	"oldest":      "projects.created_at ASC",
	"budget_high": "projects.budget DESC",
	"budget_low":  "projects.budget ASC",
}

type ProjectStore struct {
	db *gorm.DB
}

func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *ProjectStore) Get(ctx context.Context, id uuid.UUID) (models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, notFound(err)
}

func (s *ProjectStore) GetRow(ctx context.Context, id uuid.UUID) (ProjectRow, error) {
	var rows []ProjectRow
	err := s.db.WithContext(ctx).
		Table("projects").
		Select("projects.*, users.name AS creator_name").
		Joins("JOIN users ON users.id = projects.creator_id").
		Where("projects.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return ProjectRow{}, err
	}
	if len(rows) == 0 {
		return ProjectRow{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *ProjectStore) List(ctx context.Context, f ProjectFilter) ([]ProjectRow, int64, error) {
	q := s.db.WithContext(ctx).
		Table("projects").
		Joins("JOIN users ON users.id = projects.creator_id")

	if f.PublicOnly {
		q = q.Where("projects.is_public = ?", true)
	}
	if f.Status != "" && f.Status != "all" {
		q = q.Where("projects.status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("projects.category = ?", f.Category)
	}
	if f.Search != "" {
		like := containsPattern(f.Search)
		q = q.Where("(projects.title ILIKE ? OR projects.description ILIKE ?)", like, like)
	}
	if f.CreatorID != nil {
		q = q.Where("projects.creator_id = ?", *f.CreatorID)
	}
	if f.ParticipantID != nil {
		q = q.Where("(projects.creator_id = ? OR projects.counterparty_id = ?)", *f.ParticipantID, *f.ParticipantID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := projectSorts[f.Sort]
	if !ok {
		order = projectSorts["newest"]
	}

	rows := make([]ProjectRow, 0)
	err := q.Select("projects.*, users.name AS creator_name").
		Order(order).
		Offset(f.Offset).
		Limit(f.Limit).
		Scan(&rows).Error
	return rows, total, err
}

func (s *ProjectStore) Save(ctx context.Context, p *models.Project) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id).Error
}

// ClaimCounterparty sets the counter-party of an open public project only if
// none is set yet. It reports whether userID won the slot.
func (s *ProjectStore) ClaimCounterparty(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND counterparty_id IS NULL AND creator_id <> ? AND is_public = ? AND status = ?",
			projectID, userID, true, models.ProjectOpen).
		Update("counterparty_id", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// StatusCounts groups the projects userID takes part in by status.
func (s *ProjectStore) StatusCounts(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Select("status, COUNT(*) AS n").
		Where("creator_id = ? OR counterparty_id = ?", userID, userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
