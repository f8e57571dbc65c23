package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"suzukitracker/internal/security"
)

type recordingMailer struct {
	to     string
	tokens []string
	err    error
}

func (m *recordingMailer) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	m.to = toEmail
	m.tokens = append(m.tokens, resetToken)
	return m.err
}

func newAuth(t *testing.T) (*AuthService, *recordingMailer) {
	h := newHarness(t, false)
	mailer := &recordingMailer{}
	signer := security.NewSessionSigner("test-secret", time.Hour)
	return NewAuthService(h.deps, signer, mailer, time.Hour), mailer
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	teacher, err := auth.Register(ctx, TeacherInput{Email: " Maria@Example.com ", Password: "correct horse", Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", teacher.Email)
	assert.NotEqual(t, "correct horse", teacher.PasswordHash)

	_, err = auth.Register(ctx, TeacherInput{Email: "MARIA@example.com", Password: "another one", Name: "Maria"})
	require.ErrorIs(t, err, ErrEmailTaken)
	_, err = auth.Register(ctx, TeacherInput{Email: "not-an-email", Password: "correct horse", Name: "X"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = auth.Register(ctx, TeacherInput{Email: "short@example.com", Password: "short", Name: "X"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = auth.Login(ctx, "maria@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := auth.Login(ctx, "MARIA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, session.Teacher.ID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	id, err := auth.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, id)

	current, err := auth.CurrentTeacher(WithTeacher(ctx, id))
	require.NoError(t, err)
	assert.Equal(t, "Maria", current.Name)

	_, err = auth.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Authenticate(ctx, session.Token+"x")
	require.ErrorIs(t, err, ErrUnauthorized)

	other := security.NewSessionSigner("other-secret", time.Hour)
	forged, _, err := other.Issue(teacher.ID)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, forged)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.CurrentTeacher(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestPasswordReset(t *testing.T) {
	auth, mailer := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, TeacherInput{Email: "maria@example.com", Password: "correct horse", Name: "Maria"})
	require.NoError(t, err)

	require.NoError(t, auth.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.tokens, "unknown addresses get no mail")

	require.NoError(t, auth.RequestPasswordReset(ctx, "maria@example.com"))
	require.NoError(t, auth.RequestPasswordReset(ctx, "maria@example.com"))
	require.Len(t, mailer.tokens, 2)
	assert.Equal(t, "maria@example.com", mailer.to)

	// a new request replaces the previous token
	require.ErrorIs(t, auth.ResetPassword(ctx, mailer.tokens[0], "battery staple"), ErrInvalidResetToken)

	latest := mailer.tokens[1]
	require.ErrorIs(t, auth.ResetPassword(ctx, latest, "short"), ErrValidation)
	require.NoError(t, auth.ResetPassword(ctx, latest, "battery staple"))
	require.ErrorIs(t, auth.ResetPassword(ctx, latest, "battery staple 2"), ErrInvalidResetToken)
	require.ErrorIs(t, auth.ResetPassword(ctx, "made-up", "battery staple"), ErrInvalidResetToken)

	_, err = auth.Login(ctx, "maria@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "maria@example.com", "battery staple")
	require.NoError(t, err)

	require.NoError(t, auth.SetPassword(ctx, "maria@example.com", "operator set"))
	_, err = auth.Login(ctx, "maria@example.com", "operator set")
	require.NoError(t, err)
	require.ErrorIs(t, auth.SetPassword(ctx, "nobody@example.com", "operator set"), ErrNotFound)
}

func TestPasswordResetMailFailure(t *testing.T) {
	auth, mailer := newAuth(t)
	ctx := context.Background()
	mailer.err = errors.New("ses unavailable")

	_, err := auth.Register(ctx, TeacherInput{Email: "maria@example.com", Password: "correct horse", Name: "Maria"})
	require.NoError(t, err)

	// known and unknown addresses answer the same way
	require.NoError(t, auth.RequestPasswordReset(ctx, "maria@example.com"))
	require.NoError(t, auth.RequestPasswordReset(ctx, "nobody@example.com"))
	require.Len(t, mailer.tokens, 1, "the reset was still attempted")

	// the token was stored before the send failed, so it still redeems
	require.NoError(t, auth.ResetPassword(ctx, mailer.tokens[0], "new password 1"))
	_, err = auth.Login(ctx, "maria@example.com", "new password 1")
	require.NoError(t, err)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailService(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without a sender", func(t *testing.T) {
		svc, err := NewEmailService(ctx, "us-east-1", "", "", "", zap.NewNop())
		require.NoError(t, err)
		assert.False(t, svc.IsEnabled())
		require.NoError(t, svc.SendPasswordResetEmail(ctx, "maria@example.com", "Maria", "tok"))
	})

	t.Run("sends reset link", func(t *testing.T) {
		ses := &fakeSES{}
		svc := newEmailService(ses, "noreply@example.com", "Suzuki Tracker", "https://tracker.example.com", zap.NewNop())
		require.True(t, svc.IsEnabled())

		require.NoError(t, svc.SendPasswordResetEmail(ctx, "maria@example.com", "Maria", "a b"))
		require.NotNil(t, ses.input)
		assert.Equal(t, "Suzuki Tracker <noreply@example.com>", aws.ToString(ses.input.FromEmailAddress))
		assert.Equal(t, []string{"maria@example.com"}, ses.input.Destination.ToAddresses)

		text := aws.ToString(ses.input.Content.Simple.Body.Text.Data)
		assert.True(t, strings.Contains(text, "https://tracker.example.com/reset-password?token=a+b"), text)
	})

	t.Run("wraps send errors", func(t *testing.T) {
		ses := &fakeSES{err: errors.New("throttled")}
		svc := newEmailService(ses, "noreply@example.com", "", "https://tracker.example.com", zap.NewNop())
		err := svc.SendPasswordResetEmail(ctx, "maria@example.com", "Maria", "tok")
		require.ErrorContains(t, err, "throttled")
		assert.Equal(t, "noreply@example.com", aws.ToString(ses.input.FromEmailAddress))
	})
}
