package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"time"

	"checkout/internal/models"
	"checkout/internal/repositories"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$"
	passwordLength   = 12
)

// VerificationConfig tunes the one-time codes.
type VerificationConfig struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.CodeLength <= 0 {
		c.CodeLength = 5
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	switch {
	case c.MaxAttempts <= 0:
		c.MaxAttempts = 3
	case c.MaxAttempts == 1:
		// A single wrong code must not burn the challenge.
		c.MaxAttempts = 2
	}
	return c
}

type challenge struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// VerificationService provisions buyer accounts by proving phone ownership
// with a one-time code held in the session.
type VerificationService struct {
	users    repositories.UserRepository
	notifier Notifier
	cfg      VerificationConfig
	lg       *zap.Logger
	now      func() time.Time
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(users repositories.UserRepository, notifier Notifier, cfg VerificationConfig, lg *zap.Logger) *VerificationService {
	return &VerificationService{
		users:    users,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		lg:       lg,
		now:      time.Now,
	}
}

// Issue sends a fresh code to phone and replaces any pending challenge.
func (s *VerificationService) Issue(ctx context.Context, sess Session, phone string) error {
	if !IsMobile(phone) {
		return &ValidationError{Fields: map[string]string{"phone": "failed on the 'mobile' rule"}}
	}
	exists, err := s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return errors.Wrap(err, "check phone")
	}
	if exists {
		return ErrAlreadyRegistered
	}

	code, err := randomString("0123456789", s.cfg.CodeLength)
	if err != nil {
		return errors.Wrap(err, "generate code")
	}
	if err := storeJSON(sess, sessionChallengeKey, challenge{
		Phone:     phone,
		Code:      code,
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}); err != nil {
		return err
	}

	if err := s.notifier.SendCode(ctx, phone, code); err != nil {
		s.lg.Warn("Failed to send verification code", zap.String("phone", phone), zap.Error(err))
	}
	return nil
}

// Consume checks code against the pending challenge. A match destroys the
// challenge and creates an account with a random temporary password. A
// mismatch keeps the challenge until its attempts run out.
//
// Two racing consumptions of the same challenge both reach users.Create;
// the unique phone index lets exactly one of them win.
func (s *VerificationService) Consume(ctx context.Context, sess Session, code string) (*models.User, error) {
	var ch challenge
	ok, err := loadJSON(sess, sessionChallengeKey, &ch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoActiveChallenge
	}
	if s.now().After(ch.ExpiresAt) {
		sess.Delete(sessionChallengeKey)
		return nil, ErrNoActiveChallenge
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		ch.Attempts++
		if ch.Attempts >= s.cfg.MaxAttempts {
			sess.Delete(sessionChallengeKey)
		} else if err := storeJSON(sess, sessionChallengeKey, ch); err != nil {
			return nil, err
		}
		return nil, ErrCodeMismatch
	}

	// The challenge is spent only once the account exists; any other failure
	// leaves it in place for a retry.
	password, err := randomString(passwordAlphabet, passwordLength)
	if err != nil {
		return nil, errors.Wrap(err, "generate password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &models.User{Phone: ch.Phone, Password: string(hashed)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			sess.Delete(sessionChallengeKey)
			return nil, ErrNoActiveChallenge
		}
		return nil, errors.Wrap(err, "create user")
	}
	sess.Delete(sessionChallengeKey)
	s.lg.Info("Buyer account provisioned", zap.String("user_id", user.ID))

	if err := s.notifier.SendPassword(ctx, user.Phone, password); err != nil {
		s.lg.Warn("Failed to send temporary password", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
