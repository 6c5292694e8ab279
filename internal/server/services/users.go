package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server/auth"
	"github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RegisterRequest carries a new identity.
type RegisterRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// UserService manages identities and issues the tokens they act with.
// Authentication itself is out of scope: whoever may run the CLI against the
// database may mint a token for any known user.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	validity    time.Duration
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		validity:    cfg.AccessTokenValidityDuration,
		logger:      logger,
	}
}

// Register creates a user. Emails are unique, compared case-insensitively.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, common.Validationf("email %s is already registered", req.Email)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user := &models.User{ID: uuid.NewString(), Name: req.Name, Email: req.Email}
	if err := repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user", user.ID)
	return user, nil
}

// IssueToken signs an access token for an existing user.
func (s *UserService) IssueToken(ctx context.Context, userID string) (string, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("user %s: %w", userID, common.ErrorNotFound)
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	token, err := auth.GenerateToken(userID, s.jwtSecret, s.validity)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return token, nil
}
