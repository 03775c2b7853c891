package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rnrnshn/alx-polly/internal/models"
	"github.com/rnrnshn/alx-polly/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

// AccountService is the identity provider behind sessions: password accounts
// and Google sign-in both end in a Profile row.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// GoogleUserInfo is the payload of Google's userinfo endpoint.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("a valid email is required")
	}
	return email, nil
}

// Register creates a password account.
func (s *AccountService) Register(ctx context.Context, email, password, displayName string) (*models.Profile, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, validationError("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		AvatarURL:    utils.GetRandomAvatar(),
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, writeFailed(err)
	}

	logrus.WithField("profile_id", profile.ID).Info("profile registered")
	return profile, nil
}

// Authenticate checks an email/password pair. Every mismatch reports the
// same error.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.PasswordHash == "" || !utils.CheckPasswordHash(password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &profile, nil
}

// Get loads a profile by id.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

// GoogleProfile finds the profile linked to a Google account, linking an
// existing profile with the same email or creating a fresh one.
func (s *AccountService) GoogleProfile(ctx context.Context, info GoogleUserInfo) (*models.Profile, error) {
	if !info.VerifiedEmail {
		return nil, validationError("google email is not verified")
	}
	email, err := normalizeEmail(info.Email)
	if err != nil {
		return nil, err
	}

	conn := s.db.WithContext(ctx)
	var profile models.Profile
	err = conn.Where("google_id = ?", info.ID).Or("email = ?", email).First(&profile).Error
	if err == nil {
		if profile.GoogleID == "" {
			if err := conn.Model(&profile).Update("google_id", info.ID).Error; err != nil {
				return nil, writeFailed(err)
			}
		}
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	name := info.Name
	if name == "" {
		name = info.GivenName
	}
	avatar := info.Picture
	if avatar == "" {
		avatar = utils.GetRandomAvatar()
	}
	profile = models.Profile{
		Email:       email,
		DisplayName: name,
		AvatarURL:   avatar,
		GoogleID:    info.ID,
	}
	if err := conn.Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, writeFailed(err)
	}

	logrus.WithField("profile_id", profile.ID).Info("profile created from google sign-in")
	return &profile, nil
}
