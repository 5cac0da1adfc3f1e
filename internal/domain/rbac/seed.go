package rbac

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

//go:embed default_roles.yaml
var defaultRoles []byte

type Seed struct {
	Roles []SeedRole `yaml:"roles"`
}

type SeedRole struct {
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description"`
	Universal     bool             `yaml:"universal"`
	ReadOversight bool             `yaml:"read_oversight"`
	Permissions   []PermissionCode `yaml:"permissions"`
}

// SeedResult counts what ApplySeed changed.
type SeedResult struct {
	RolesCreated int `json:"roles_created"`
	FlagsUpdated int `json:"flags_updated"`
	Grants       int `json:"grants"`
}

// LoadSeed decodes a YAML seed and validates every permission code against
// the catalog.
func LoadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode role seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open role seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// DefaultSeed returns the built-in role table.
func DefaultSeed() *Seed {
	s, err := LoadSeed(bytes.NewReader(defaultRoles))
	if err != nil {
		panic(fmt.Sprintf("rbac: default role seed: %v", err))
	}
	return s
}

func (s *Seed) Validate() error {
	seen := make(map[string]bool, len(s.Roles))
	for _, r := range s.Roles {
		if !roleNamePattern.MatchString(r.Name) {
			return apperr.Invalid(fmt.Sprintf("seed role %q: invalid name", r.Name))
		}
		if seen[r.Name] {
			return apperr.Invalid(fmt.Sprintf("seed role %q listed twice", r.Name))
		}
		seen[r.Name] = true
		for _, p := range r.Permissions {
			if !Known(p) {
				return apperr.Invalid(fmt.Sprintf("seed role %q: unknown permission %q", r.Name, p))
			}
		}
	}
	return nil
}

// ApplySeed creates missing roles, sets their flags and grants the listed
// permissions. It never revokes, so applying a seed twice is a no-op. The
// whole seed is validated before anything is written.
func (s *Service) ApplySeed(ctx context.Context, by uuid.UUID, seed *Seed) (SeedResult, error) {
	var res SeedResult
	if err := seed.Validate(); err != nil {
		return res, err
	}

	for _, sr := range seed.Roles {
		role, err := s.repo.GetByName(ctx, sr.Name)
		if errors.Is(err, apperr.ErrNotFound) {
			role, err = s.CreateRole(ctx, by, sr.Name, sr.Description)
			if err == nil {
				res.RolesCreated++
			}
		}
		if err != nil {
			return res, fmt.Errorf("seed role %q: %w", sr.Name, err)
		}

		if role.Universal != sr.Universal || role.ReadOversight != sr.ReadOversight {
			if _, err := s.SetFlags(ctx, by, role.ID, sr.Universal, sr.ReadOversight); err != nil {
				return res, fmt.Errorf("seed role %q flags: %w", sr.Name, err)
			}
			res.FlagsUpdated++
		}

		for _, p := range sr.Permissions {
			if role.Has(p) {
				continue
			}
			if err := s.GrantPermission(ctx, by, role.ID, p); err != nil {
				return res, fmt.Errorf("seed role %q grant %s: %w", sr.Name, p, err)
			}
			res.Grants++
		}
	}
	return res, nil
}
