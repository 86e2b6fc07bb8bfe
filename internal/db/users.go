package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/railmadad/backend/internal/models"
)

const userColumns = `u.id, u.phone_number, u.email, u.username, u.name, u.role, u.is_verified, u.available, u.is_online,
	u.current_train, u.station, u.department, u.skills, u.last_login, u.last_active, u.created_at`

// activeLoad counts open assignments per worker, the same way the UI shows workload.
const activeLoad = `(SELECT count(*) FROM complaints c WHERE c.assigned_to = u.id AND c.status IN ('APPROVED', 'IN_PROGRESS'))`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Email, &u.Username, &u.Name, &role, &u.IsVerified, &u.Available, &u.IsOnline,
		&u.CurrentTrain, &u.Station, &u.Department, &u.Skills, &u.LastLogin, &u.LastActive, &u.CreatedAt, &u.ActiveLoad)
	u.Role = models.Role(role)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+`, `+activeLoad+` FROM users u WHERE u.id = $1`, id))
	return u, notFound(err)
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+`, `+activeLoad+` FROM users u WHERE u.phone_number = $1`, phone))
	return u, notFound(err)
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	if u.Skills == nil {
		u.Skills = []string{}
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO users (id, phone_number, email, username, name, role, is_verified, available, is_online,
			current_train, station, department, skills, last_login, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		u.ID, u.PhoneNumber, u.Email, u.Username, u.Name, string(u.Role), u.IsVerified, u.Available, u.IsOnline,
		u.CurrentTrain, u.Station, u.Department, u.Skills, u.LastLogin, u.LastActive, u.CreatedAt)
	if isUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	if u.Skills == nil {
		u.Skills = []string{}
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET email = $2, username = $3, name = $4, role = $5, is_verified = $6,
			available = $7, is_online = $8, current_train = $9, station = $10, department = $11, skills = $12,
			last_login = $13, last_active = $14
		WHERE id = $1`,
		u.ID, u.Email, u.Username, u.Name, string(u.Role), u.IsVerified, u.Available, u.IsOnline,
		u.CurrentTrain, u.Station, u.Department, u.Skills, u.LastLogin, u.LastActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListWorkers(ctx context.Context, f models.WorkerFilter) ([]models.User, error) {
	args := []any{string(models.RoleWorker)}
	wheres := []string{"u.role = $1"}
	if f.AvailableOnly {
		wheres = append(wheres, "u.available")
	}
	if t := strings.TrimSpace(f.TrainNumber); t != "" {
		args = append(args, t)
		wheres = append(wheres, fmt.Sprintf("u.current_train = $%d", len(args)))
	}
	query := `SELECT ` + userColumns + `, ` + activeLoad + ` AS active_load FROM users u WHERE ` + strings.Join(wheres, " AND ") +
		` ORDER BY active_load ASC, u.id ASC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
