package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gatekeeper/internal/adapter/repo"
	"gatekeeper/internal/domain"
	"gatekeeper/internal/infra"
	"gatekeeper/internal/quota"
	"gatekeeper/internal/token"
)

type options struct {
	userID  string
	email   string
	create  bool
	tier    string
	role    string
	verify  bool
	exempt  bool
	release bool
	issue   string
}

// operator is the subset of the user store this tool drives.
type operator interface {
	domain.UserRepository
	Upsert(ctx context.Context, u domain.User) (*domain.User, error)
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.userID, "id", "", "user ID to operate on")
	flag.StringVar(&opts.email, "email", "", "email used when -create is set")
	flag.BoolVar(&opts.create, "create", false, "create or update the user before applying other changes")
	flag.StringVar(&opts.tier, "tier", "", "tier to assign (free, basic, pro, enterprise)")
	flag.StringVar(&opts.role, "role", "", "role to assign (user, admin)")
	flag.BoolVar(&opts.verify, "verify", false, "mark the user as verified")
	flag.BoolVar(&opts.exempt, "exempt", false, "exempt the user from daily quotas")
	flag.BoolVar(&opts.release, "unexempt", false, "remove the user's quota exemption")
	flag.StringVar(&opts.issue, "issue", "", "print a token for the user (access, refresh)")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	if cfg.StoreDriver != infra.StoreDriverPostgres {
		exitWithError(errors.New("userplan requires STORE_DRIVER=postgres"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	var exemptions domain.ExemptionStore = quota.NewMemoryExemptions()
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			exitWithError(fmt.Errorf("failed to connect redis: %w", err))
		}
		defer rdb.Close()
		exemptions = repo.NewRedisExemptions(rdb, cfg.ExemptionsKey)
	} else if opts.exempt || opts.release {
		exitWithError(errors.New("REDIS_URL is required to change exemptions"))
	}

	codec, err := token.NewCodec(token.Config{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		exitWithError(err)
	}

	if err := run(ctx, opts, users, exemptions, codec, os.Stdout); err != nil {
		exitWithError(err)
	}
}

func run(ctx context.Context, opts options, users operator, exemptions domain.ExemptionStore, codec *token.Codec, out io.Writer) error {
	id := strings.TrimSpace(opts.userID)
	if id == "" {
		return errors.New("-id must be provided")
	}
	if opts.exempt && opts.release {
		return errors.New("-exempt and -unexempt are mutually exclusive")
	}

	if opts.create {
		tier := domain.TierFree
		if opts.tier != "" {
			parsed, err := domain.ParseTier(opts.tier)
			if err != nil {
				return err
			}
			tier = parsed
		}
		if _, err := users.Upsert(ctx, domain.User{
			ID:       id,
			Email:    strings.TrimSpace(opts.email),
			Role:     domain.UserRoleUser,
			Tier:     tier,
			IsActive: true,
		}); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
	}

	if opts.tier != "" && !opts.create {
		tier, err := domain.ParseTier(opts.tier)
		if err != nil {
			return err
		}
		if _, err := users.SetTier(ctx, id, tier); err != nil {
			return fmt.Errorf("failed to update tier: %w", err)
		}
	}
	if opts.role != "" {
		role := domain.UserRole(strings.ToLower(strings.TrimSpace(opts.role)))
		if role != domain.UserRoleUser && role != domain.UserRoleAdmin {
			return fmt.Errorf("unsupported role %q", opts.role)
		}
		if _, err := users.SetRole(ctx, id, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
	}
	if opts.verify {
		if _, err := users.SetVerified(ctx, id); err != nil {
			return fmt.Errorf("failed to verify user: %w", err)
		}
	}

	u, err := users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if opts.exempt {
		if _, err := exemptions.Add(ctx, id); err != nil {
			return fmt.Errorf("failed to add exemption: %w", err)
		}
	}
	if opts.release {
		if _, err := exemptions.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove exemption: %w", err)
		}
	}
	exempt, err := exemptions.Contains(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read exemption: %w", err)
	}

	limits := domain.LimitsFor(u.Tier)
	fmt.Fprintf(out, "User %s (%s) tier=%s role=%s active=%t verified=%t\n", u.ID, u.Email, u.Tier, u.Role, u.IsActive, u.IsVerified)
	if limits.Unlimited() {
		fmt.Fprintf(out, "requests_today=%d limit=unlimited exempt=%t\n", u.Usage.RequestsToday, exempt)
	} else {
		fmt.Fprintf(out, "requests_today=%d limit=%d exempt=%t\n", u.Usage.RequestsToday, limits.MaxRequestsPerDay, exempt)
	}

	switch strings.ToLower(strings.TrimSpace(opts.issue)) {
	case "":
	case "access":
		raw, err := codec.IssueAccess(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, raw)
	case "refresh":
		raw, err := codec.IssueRefresh(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, raw)
	default:
		return fmt.Errorf("unsupported token kind %q", opts.issue)
	}
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
