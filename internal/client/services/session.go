package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeroeau/washpro-technician/internal/client/api"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/repositories/syncstate"
	"github.com/zeroeau/washpro-technician/internal/common"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// SessionService resolves and persists the logged-in technician. The session
// record survives restarts, so the app stays logged in until an explicit
// logout.
type SessionService struct {
	remote api.Client
	state  syncstate.Repository
	log    logging.Logger
}

func NewSessionService(remote api.Client, state syncstate.Repository, log logging.Logger) *SessionService {
	return &SessionService{remote: remote, state: state, log: log}
}

// Login resolves the technician by phone against the remote roster and
// persists the session. The roster call doubles as the service-key check:
// a wrong key surfaces as common.ErrUnauthorized.
func (s *SessionService) Login(ctx context.Context, phone string) (*models.Technician, error) {
	roster, err := s.remote.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching technician roster: %w", err)
	}

	for i := range roster {
		t := roster[i]
		if t.Phone != phone {
			continue
		}
		if !t.IsActive {
			return nil, fmt.Errorf("technician %s is deactivated: %w", t.ID, common.ErrUnauthorized)
		}
		if err := s.state.SetSession(ctx, &t); err != nil {
			return nil, fmt.Errorf("persisting session: %w", err)
		}
		s.log.Info(ctx, "logged in", "technician", t.ID, "zone", t.Zone)
		return &t, nil
	}
	return nil, fmt.Errorf("no technician with phone %s: %w", phone, common.ErrUnauthorized)
}

// Current returns the persisted session, or common.ErrNotLoggedIn.
func (s *SessionService) Current(ctx context.Context) (*models.Technician, error) {
	t, err := s.state.Session(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotLoggedIn) {
			return nil, err
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return t, nil
}

// Logout wipes the session together with the known-id set and the unread
// counter. Explicit logout is the one event allowed to shrink the known-id
// set; the next login starts from a cold sync again.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.state.Reset(ctx); err != nil {
		return fmt.Errorf("clearing session state: %w", err)
	}
	s.log.Info(ctx, "logged out, local sync state cleared")
	return nil
}
