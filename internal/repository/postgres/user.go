package postgres

import (
	"context"
	"database/sql"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"

	"github.com/lib/pq"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, COALESCE(phone_number, ''), password_hash, name, role, COALESCE(skills, ''),
	rating, experience_years, is_available, latitude, longitude, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Name, &u.Role, &u.Skills,
		&u.Rating, &u.ExperienceYears, &u.IsAvailable, &u.Latitude, &u.Longitude, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *userRepository) ListAvailableWorkers(ctx context.Context, minRating float64, excludeIDs []int32) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE role = $1 AND is_available = TRUE AND rating >= $2 AND NOT (id = ANY($3))
	          ORDER BY rating DESC, experience_years DESC, id ASC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, domain.RoleWorker, minRating, pq.Array(int64s(excludeIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *u)
	}
	return workers, rows.Err()
}
