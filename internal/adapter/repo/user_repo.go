package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/infra"
	"gatekeeper/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	db infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(db infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// EnsureSchema creates the users table when it is missing.
func (r *UserRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsureUsersTable); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	return nil
}

// Upsert inserts the user or overwrites its profile columns. Usage counters are left alone.
func (r *UserRepositoryPG) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.UserRoleUser
	}
	tier := u.Tier
	if tier == "" {
		tier = domain.TierFree
	}
	row := r.db.QueryRow(ctx, sqlinline.QUpsertUser,
		u.ID, u.Email, u.Name, string(role), string(tier), u.IsActive, u.IsVerified)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// ConsumeRequest runs the conditional update. No returned row means either the user
// does not exist or the cap was reached; a follow-up read tells the two apart.
func (r *UserRepositoryPG) ConsumeRequest(ctx context.Context, id string, limit int, now time.Time) (domain.UsageRecord, bool, error) {
	usage, err := scanUsage(r.db.QueryRow(ctx, sqlinline.QConsumeRequest, id, limit, now.UTC()))
	if err == nil {
		return usage, true, nil
	}
	if !infra.IsNoRows(err) {
		return domain.UsageRecord{}, false, fmt.Errorf("consume request: %w", err)
	}

	usage, err = scanUsage(r.db.QueryRow(ctx, sqlinline.QSelectUsageByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.UsageRecord{}, false, domain.ErrNotFound
		}
		return domain.UsageRecord{}, false, fmt.Errorf("read usage: %w", err)
	}
	return usage, false, nil
}

func (r *UserRepositoryPG) SetRole(ctx context.Context, id string, role domain.UserRole) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QUpdateUserRole, id, string(role)))
}

func (r *UserRepositoryPG) SetTier(ctx context.Context, id string, tier domain.Tier) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QUpdateUserTier, id, string(tier)))
}

func (r *UserRepositoryPG) SetVerified(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, sqlinline.QMarkUserVerified, id))
}

func (r *UserRepositoryPG) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, sqlinline.QCountAdmins).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		tier      string
		resetDate *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &role, &tier, &u.IsActive, &u.IsVerified,
		&u.Usage.RequestsToday, &resetDate, &u.Usage.TotalRequests,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.Tier = domain.Tier(tier)
	if resetDate != nil {
		u.Usage.RequestsResetDate = resetDate.UTC()
	}
	return &u, nil
}

func scanUsage(row pgx.Row) (domain.UsageRecord, error) {
	var (
		usage     domain.UsageRecord
		resetDate *time.Time
	)
	if err := row.Scan(&usage.RequestsToday, &resetDate, &usage.TotalRequests); err != nil {
		return domain.UsageRecord{}, err
	}
	if resetDate != nil {
		usage.RequestsResetDate = resetDate.UTC()
	}
	return usage, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
