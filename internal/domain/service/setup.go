package service

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/ports"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Handshake carries the state of one registration between its two steps.
type Handshake struct {
	Email      string
	BackendURL string
	Token      string
	Status     model.AuthStatus
}

// Done reports whether the handshake reached a final state.
func (h *Handshake) Done() bool {
	return h.Status == model.AuthStatusApproved || h.Status == model.AuthStatusRejected
}

// SetupService performs the authenticate / poll-for-approval exchange and
// stores the resulting credentials.
type SetupService struct {
	clients ports.BackendFactory
	repo    ports.CredentialsRepository
	logger  zerolog.Logger
}

func NewSetupService(clients ports.BackendFactory, repo ports.CredentialsRepository, logger zerolog.Logger) *SetupService {
	return &SetupService{
		clients: clients,
		repo:    repo,
		logger:  logger.With().Str("component", "setup").Logger(),
	}
}

// Begin registers email with the backend. Before approval no token exists,
// so the request is sent with an empty bearer token.
func (s *SetupService) Begin(ctx context.Context, email, backendURL string) (*Handshake, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if backendURL == "" {
		return nil, errors.New("backend url is required")
	}

	res, err := s.clients(backendURL, "").Authenticate(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCannotConnect, err)
	}

	// Only an explicit pending status starts the approval step; anything
	// else unrecognised leaves the user at the registration step.
	h := &Handshake{Email: email, BackendURL: backendURL, Token: res.Token, Status: model.AuthStatusPending}
	switch res.Status {
	case model.AuthStatusApproved:
		return h, s.complete(ctx, h)
	case model.AuthStatusPending:
		s.logger.Info().Str("email", email).Msg("registration pending approval")
		return h, nil
	case model.AuthStatusRejected:
		h.Status = model.AuthStatusRejected
		return h, model.ErrAuthRejected
	}
	s.logger.Warn().Str("email", email).Str("status", string(res.Status)).Msg("unexpected registration status")
	return nil, fmt.Errorf("%w: registration status %q", model.ErrInvalidResponse, res.Status)
}

// Poll checks once whether a pending registration has been approved. Any
// status other than approved or rejected leaves the handshake pending.
// A transport failure leaves it pending too, so the caller may poll again.
func (s *SetupService) Poll(ctx context.Context, h *Handshake) (model.AuthStatus, error) {
	if h.Done() {
		return h.Status, nil
	}

	res, err := s.clients(h.BackendURL, h.Token).CheckStatus(ctx)
	if err != nil {
		return h.Status, fmt.Errorf("%w: %w", model.ErrCannotConnect, err)
	}

	switch res.Status {
	case model.AuthStatusApproved:
		if err := s.complete(ctx, h); err != nil {
			return h.Status, err
		}
		return h.Status, nil
	case model.AuthStatusRejected:
		h.Status = model.AuthStatusRejected
		s.logger.Warn().Str("email", h.Email).Msg("registration rejected")
		return h.Status, model.ErrAuthRejected
	}
	return h.Status, nil
}

func (s *SetupService) complete(ctx context.Context, h *Handshake) error {
	creds := &model.Credentials{Email: h.Email, BackendURL: h.BackendURL, Token: h.Token}
	if err := s.repo.Save(ctx, creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	h.Status = model.AuthStatusApproved
	s.logger.Info().Str("email", h.Email).Msg("registration approved")
	return nil
}
