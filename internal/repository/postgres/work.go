package postgres

import (
	"context"
	"database/sql"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
)

type workRepository struct {
	db *sql.DB
}

func NewWorkRepository(db *sql.DB) repository.WorkRepository {
	return &workRepository{db: db}
}

func (r *workRepository) GetByID(ctx context.Context, id int32) (*domain.Work, error) {
	w := &domain.Work{}
	query := `SELECT id, worker_id, title, COALESCE(description, ''), charges, estimated_time_hours,
	          COALESCE(category, ''), latitude, longitude, is_available, created_at
	          FROM works WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&w.ID, &w.WorkerID, &w.Title, &w.Description,
		&w.Charges, &w.EstimatedTimeHours, &w.Category, &w.Latitude, &w.Longitude, &w.IsAvailable, &w.CreatedAt)
	if err != nil {
		return nil, notFound(err, "work")
	}
	return w, nil
}
