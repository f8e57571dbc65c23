package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/metrics"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
	"suzukitracker/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// TeacherInput is the registration form of a teacher account
type TeacherInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=255"`
}

// Session is an issued session token
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Teacher   *models.Teacher `json:"teacher"`
}

// AuthService handles teacher accounts, sessions and password resets
type AuthService struct {
	db       *database.DB
	signer   *security.SessionSigner
	mailer   Mailer
	resetTTL time.Duration
	log      *zap.Logger
	metrics  *metrics.Recorder
}

// NewAuthService creates a new auth service. mailer may be nil, in which case reset emails are skipped.
func NewAuthService(deps Deps, signer *security.SessionSigner, mailer Mailer, resetTTL time.Duration) *AuthService {
	return &AuthService{
		db:       deps.DB,
		signer:   signer,
		mailer:   mailer,
		resetTTL: resetTTL,
		log:      deps.Log.Named("auth"),
		metrics:  deps.Metrics,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a teacher account
func (s *AuthService) Register(ctx context.Context, in TeacherInput) (teacher *models.Teacher, err error) {
	defer func() { s.metrics.Observe("register", Classify(err)) }()

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	teachers := repository.NewTeacherRepository(s.db)
	existing, err := teachers.GetTeacherByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	teacher, err = teachers.CreateTeacher(ctx, in.Email, hash, in.Name)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("teacher registered", zap.Int64("teacher_id", teacher.ID))
	return teacher, nil
}

// Login verifies credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (session *Session, err error) {
	defer func() { s.metrics.Observe("login", Classify(err)) }()

	teacher, err := repository.NewTeacherRepository(s.db).GetTeacherByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if teacher == nil || !security.CheckPassword(password, teacher.PasswordHash) {
		s.log.Warn("login failed", zap.String("email", normalizeEmail(email)))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.signer.Issue(teacher.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Teacher: teacher}, nil
}

// Authenticate returns the teacher ID carried by a valid session token
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}
	teacherID, err := s.signer.Verify(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	teacher, err := repository.NewTeacherRepository(s.db).GetTeacherByID(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	if teacher == nil {
		return 0, ErrUnauthorized
	}
	return teacherID, nil
}

// CurrentTeacher returns the acting teacher's account
func (s *AuthService) CurrentTeacher(ctx context.Context) (*models.Teacher, error) {
	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	teacher, err := repository.NewTeacherRepository(s.db).GetTeacherByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, ErrUnauthorized
	}
	return teacher, nil
}

// RequestPasswordReset creates a reset token and emails it. Unknown addresses
// succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.Observe("request_password_reset", Classify(err)) }()

	teachers := repository.NewTeacherRepository(s.db)
	teacher, err := teachers.GetTeacherByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if teacher == nil {
		s.log.Debug("password reset for unknown email")
		return nil
	}

	token, hash := security.NewResetToken()
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		resets := repository.NewTeacherRepository(tx)
		if err := resets.DeleteTeacherPasswordResets(ctx, teacher.ID); err != nil {
			return err
		}
		return resets.CreatePasswordReset(ctx, teacher.ID, hash, time.Now().Add(s.resetTTL))
	})
	if err != nil {
		return err
	}

	// Known and unknown addresses must answer alike, so mail failures are only logged
	if s.mailer != nil {
		if err := s.mailer.SendPasswordResetEmail(ctx, teacher.Email, teacher.Name, token); err != nil {
			s.log.Error("failed to send reset email", zap.Int64("teacher_id", teacher.ID), zap.Error(err))
			return nil
		}
	}
	s.log.Info("password reset requested", zap.Int64("teacher_id", teacher.ID))
	return nil
}

// ResetPassword redeems a reset token and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.metrics.Observe("reset_password", Classify(err)) }()

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		teachers := repository.NewTeacherRepository(tx)
		reset, err := teachers.GetPasswordReset(ctx, security.HashToken(token))
		if err != nil {
			return err
		}
		if reset == nil || !reset.IsUsable() {
			return ErrInvalidResetToken
		}

		consumed, err := teachers.MarkPasswordResetUsed(ctx, reset.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrInvalidResetToken
		}
		if err := teachers.UpdatePassword(ctx, reset.TeacherID, hash); err != nil {
			return err
		}
		s.log.Info("password reset", zap.Int64("teacher_id", reset.TeacherID))
		return nil
	})
}

// SetPassword overwrites a teacher's password without a token (operator use)
func (s *AuthService) SetPassword(ctx context.Context, email, newPassword string) error {
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	teachers := repository.NewTeacherRepository(s.db)
	teacher, err := teachers.GetTeacherByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if teacher == nil {
		return notFound("teacher")
	}
	return teachers.UpdatePassword(ctx, teacher.ID, hash)
}

// CleanupExpiredPasswordResets removes expired reset tokens
func (s *AuthService) CleanupExpiredPasswordResets(ctx context.Context) (int64, error) {
	return repository.NewTeacherRepository(s.db).DeleteExpiredPasswordResets(ctx)
}
