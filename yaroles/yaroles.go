// Package yaroles keeps the roles of chat users in memory, backed by a
// Repository that survives restarts.
package yaroles

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "mod"
	RoleBanned    = "banned"
)

// Repository persists user roles.
type Repository interface {
	Load(ctx context.Context) (map[int64][]string, yaerrors.Error)
	Grant(ctx context.Context, userID int64, role string) yaerrors.Error
	Revoke(ctx context.Context, userID int64, role string) yaerrors.Error
}

// Service answers role lookups from memory. Filters call HasRole on every
// event, so lookups never touch the repository.
type Service struct {
	mu    sync.RWMutex
	roles map[int64]map[string]struct{}
	repo  Repository
	log   yalogger.Logger
}

// NewService creates an empty Service. Call Load to read the repository.
func NewService(repo Repository, log yalogger.Logger) *Service {
	return &Service{
		roles: make(map[int64]map[string]struct{}),
		repo:  repo,
		log:   log,
	}
}

// Load replaces the in-memory roles with the repository contents.
func (s *Service) Load(ctx context.Context) yaerrors.Error {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return err.Wrap("failed to load roles")
	}

	roles := make(map[int64]map[string]struct{}, len(stored))

	for userID, list := range stored {
		for _, role := range list {
			addRole(roles, userID, role)
		}
	}

	s.mu.Lock()
	s.roles = roles
	s.mu.Unlock()

	s.log.Infof("Loaded roles of %d users", len(roles))

	return nil
}

// Seed grants every role of roleMap that is not granted yet.
//
// Example usage:
//
//	roleMap, _ := yaroles.ParseRoleMap("admin=1,2;mod=3")
//	_ = roles.Seed(ctx, roleMap)
func (s *Service) Seed(ctx context.Context, roleMap map[string][]int64) yaerrors.Error {
	for role, users := range roleMap {
		for _, userID := range users {
			if s.HasRole(userID, role) {
				continue
			}

			if err := s.Grant(ctx, userID, role); err != nil {
				return err.Wrap("failed to seed roles")
			}
		}
	}

	return nil
}

// HasRole reports whether userID holds exactly role.
func (s *Service) HasRole(userID int64, role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.roles[userID][role]

	return ok
}

// Roles returns the sorted roles of userID.
func (s *Service) Roles(userID int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]string, 0, len(s.roles[userID]))
	for role := range s.roles[userID] {
		roles = append(roles, role)
	}

	slices.Sort(roles)

	return roles
}

// Grant persists role for userID and then makes it visible to lookups.
func (s *Service) Grant(ctx context.Context, userID int64, role string) yaerrors.Error {
	if err := s.repo.Grant(ctx, userID, role); err != nil {
		return err.Wrap(fmt.Sprintf("failed to grant `%s` to %d", role, userID))
	}

	s.mu.Lock()
	addRole(s.roles, userID, role)
	s.mu.Unlock()

	s.log.WithUserID(userID).Infof("Granted role %s", role)

	return nil
}

// Revoke persists the removal of role from userID. Revoking a role the user
// does not hold returns ErrRoleNotFound.
func (s *Service) Revoke(ctx context.Context, userID int64, role string) yaerrors.Error {
	if !s.HasRole(userID, role) {
		return yaerrors.FromError(
			http.StatusNotFound,
			ErrRoleNotFound,
			fmt.Sprintf("user %d has no role `%s`", userID, role),
		)
	}

	if err := s.repo.Revoke(ctx, userID, role); err != nil {
		return err.Wrap(fmt.Sprintf("failed to revoke `%s` from %d", role, userID))
	}

	s.mu.Lock()

	delete(s.roles[userID], role)

	if len(s.roles[userID]) == 0 {
		delete(s.roles, userID)
	}

	s.mu.Unlock()

	s.log.WithUserID(userID).Infof("Revoked role %s", role)

	return nil
}

func addRole(roles map[int64]map[string]struct{}, userID int64, role string) {
	if roles[userID] == nil {
		roles[userID] = make(map[string]struct{})
	}

	roles[userID][role] = struct{}{}
}

// ParseRoleMap parses `role=id,id;role=id` into role -> user ids. Blank
// entries are skipped.
//
// Example usage:
//
//	roleMap, err := yaroles.ParseRoleMap("admin=1,2;mod=3")
func ParseRoleMap(raw string) (map[string][]int64, yaerrors.Error) {
	roleMap := make(map[string][]int64)

	for entry := range strings.SplitSeq(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		role, ids, ok := strings.Cut(entry, "=")
		role = strings.TrimSpace(role)

		if !ok || role == "" {
			return nil, yaerrors.FromError(
				http.StatusBadRequest,
				ErrInvalidRoleMap,
				fmt.Sprintf("bad role entry `%s`", entry),
			)
		}

		for id := range strings.SplitSeq(ids, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}

			userID, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, yaerrors.FromError(
					http.StatusBadRequest,
					fmt.Errorf("%w: %w", ErrInvalidRoleMap, err),
					fmt.Sprintf("bad user id `%s` for role `%s`", id, role),
				)
			}

			roleMap[role] = append(roleMap[role], userID)
		}
	}

	return roleMap, nil
}
