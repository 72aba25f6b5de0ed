package memstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gatekeeper/internal/domain"
)

type seedUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Tier       string `json:"tier"`
	Active     *bool  `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
}

// LoadSeed reads a JSON array of users into s. Missing roles default to user and
// missing active flags to true.
func LoadSeed(s *UserStore, r io.Reader) (int, error) {
	var rows []seedUser
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, fmt.Errorf("decode seed: %w", err)
	}
	for i, row := range rows {
		if strings.TrimSpace(row.ID) == "" {
			return 0, fmt.Errorf("seed row %d: id is required", i)
		}
		tier := domain.TierFree
		if row.Tier != "" {
			parsed, err := domain.ParseTier(row.Tier)
			if err != nil {
				return 0, fmt.Errorf("seed row %d: %w", i, err)
			}
			tier = parsed
		}
		role := domain.UserRoleUser
		switch domain.UserRole(row.Role) {
		case "", domain.UserRoleUser:
		case domain.UserRoleAdmin:
			role = domain.UserRoleAdmin
		default:
			return 0, fmt.Errorf("seed row %d: unknown role %q", i, row.Role)
		}
		active := true
		if row.Active != nil {
			active = *row.Active
		}
		s.Put(domain.User{
			ID:         row.ID,
			Email:      row.Email,
			Name:       row.Name,
			Role:       role,
			Tier:       tier,
			IsActive:   active,
			IsVerified: row.IsVerified,
		})
	}
	return len(rows), nil
}

// LoadSeedFile is LoadSeed over the file at path.
func LoadSeedFile(s *UserStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(s, f)
}
