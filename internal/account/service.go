// Package account signs users in and out and keeps their credentials.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/api"
	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
	"github.com/dharsanguruparan/vaultdesk/internal/credentials"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/validation"
)

// LoginRequest carries the login form.
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Username    string     `validate:"required,min=3,max=30"`
	Email       string     `validate:"required,email"`
	Password    string     `validate:"required,min=6"`
	Confirm     string     `validate:"required,eqfield=Password" name:"confirmation"`
	Role        model.Role `validate:"omitempty,oneof=user admin"`
	AdminSecret string     `validate:"required_if=Role admin" name:"admin secret"`
}

// Authenticator is the slice of the API client the service needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.AuthResult, error)
	Register(ctx context.Context, req api.RegisterRequest) (model.AuthResult, error)
	Me(ctx context.Context) (model.User, error)
}

// Service provides the account use cases.
type Service struct {
	auth      Authenticator
	store     credentials.Store
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a Service. validate and logger may be nil.
func NewService(auth Authenticator, store credentials.Store, validate *validator.Validate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &Service{auth: auth, store: store, validator: validate, logger: logger, now: time.Now}
}

// Login authenticates and persists the returned token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(s.validator, req); err != nil {
		return model.User{}, err
	}
	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return model.User{}, err
	}
	if err := s.save(res); err != nil {
		return model.User{}, err
	}
	s.logger.Info("logged in", zap.String("user_id", res.User.ID), zap.String("role", string(res.User.Role)))
	return res.User, nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if err := validation.Struct(s.validator, req); err != nil {
		return model.User{}, err
	}
	body := api.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}
	if req.Role == model.RoleAdmin {
		body.AdminSecret = req.AdminSecret
	}
	res, err := s.auth.Register(ctx, body)
	if err != nil {
		return model.User{}, err
	}
	if err := s.save(res); err != nil {
		return model.User{}, err
	}
	s.logger.Info("registered", zap.String("user_id", res.User.ID), zap.String("role", string(res.User.Role)))
	return res.User, nil
}

func (s *Service) save(res model.AuthResult) error {
	if res.Token == "" {
		return apierr.New(apierr.KindServer, 0, "login response carried no token")
	}
	return s.store.Save(credentials.Credentials{Token: res.Token, User: res.User, SavedAt: s.now().UTC()})
}

// Logout forgets the saved credentials. Logging out twice is not an error.
func (s *Service) Logout() error {
	return s.store.Clear()
}

// WhoAmI asks the API who the token belongs to. When the API is unreachable
// it falls back to what was saved at login, reporting offline as true.
func (s *Service) WhoAmI(ctx context.Context) (model.Principal, bool, error) {
	if s.store.Token() == "" {
		return model.Principal{}, false, credentials.ErrNoCredentials
	}
	u, err := s.auth.Me(ctx)
	if err == nil {
		return u.Principal(), false, nil
	}
	if errors.Is(err, apierr.ErrSessionExpired) || !apierr.KindOf(err).Retryable() {
		return model.Principal{}, false, err
	}
	s.logger.Debug("whoami offline", zap.Error(err))
	p, perr := credentials.Principal(s.store)
	if perr != nil {
		return model.Principal{}, false, err
	}
	return p, true, nil
}

// Principal returns the signed-in principal from saved credentials without a
// network round trip.
func (s *Service) Principal() (model.Principal, error) {
	return credentials.Principal(s.store)
}
