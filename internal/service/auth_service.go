package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"

	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/repository"
	"github.com/iliyamo/tripshare/internal/sms"
	"github.com/iliyamo/tripshare/internal/storage"
	"github.com/iliyamo/tripshare/internal/utils"
)

const (
	minPasswordLen = 6
	photoMaxEdge   = 512
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	CodeTTL        time.Duration
}

// AuthService registers users, issues tokens and manages profiles.
type AuthService struct {
	cfg     AuthConfig
	users   *repository.UserRepo
	tokens  *repository.TokenRepo
	ratings *repository.RatingRepo
	files   storage.Storage
	sms     sms.Sender
	codes   repository.CodeStore
	prefs   *jsonschema.Schema
	log     *logger.Logger
	now     func() time.Time
}

// NewAuthService wires the service.  codes may be nil when Redis is not
// available; phone verification then answers 503.
func NewAuthService(cfg AuthConfig, users *repository.UserRepo, tokens *repository.TokenRepo, ratings *repository.RatingRepo,
	files storage.Storage, sender sms.Sender, codes repository.CodeStore, log *logger.Logger) (*AuthService, error) {
	prefs, err := loadPreferencesSchema()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	if sender == nil {
		sender = sms.LogSender{Log: log}
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &AuthService{
		cfg:     cfg,
		users:   users,
		tokens:  tokens,
		ratings: ratings,
		files:   files,
		sms:     sender,
		codes:   codes,
		prefs:   prefs,
		log:     log,
		now:     utcNow,
	}, nil
}

// Upload is one file of a multipart request.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type RegisterInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    string  `json:"phone"`
	Role     string  `json:"role"`
	Bio      string  `json:"bio"`
	Photo    *Upload `json:"-"`
	License  *Upload `json:"-"`
}

// Session is returned by register, login and refresh.
type Session struct {
	User             model.User `json:"user"`
	AccessToken      string     `json:"access_token"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshToken     string     `json:"refresh_token"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at"`
}

func unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return Session{}, invalid("name, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return Session{}, invalid("email is not valid")
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, invalid("password must be at least %d characters", minPasswordLen)
	}
	switch in.Role {
	case "":
		in.Role = model.RolePassenger
	case model.RolePassenger, model.RoleDriver:
	default:
		return Session{}, invalid("role must be passenger or driver")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		Bio:          strings.TrimSpace(in.Bio),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var stored []string
	cleanup := func() {
		for _, k := range stored {
			_ = s.files.Delete(ctx, k)
		}
	}
	if in.Photo != nil {
		up, err := s.storePhoto(ctx, *in.Photo)
		if err != nil {
			return Session{}, err
		}
		stored = append(stored, up.Key)
		u.ProfilePhoto = up.URL
	}
	if in.License != nil {
		up, err := s.files.Upload(ctx, &storage.UploadRequest{
			Key:         storage.NewKey("licenses", in.License.FileName),
			Reader:      in.License.Body,
			ContentType: in.License.ContentType,
			Size:        in.License.Size,
		})
		if err != nil {
			cleanup()
			return Session{}, fmt.Errorf("store license: %w", err)
		}
		stored = append(stored, up.Key)
		u.LicenseDocument = up.URL
	}

	u.ID, err = s.users.Create(ctx, u)
	if err != nil {
		cleanup()
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, conflict("email already registered")
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	s.log.WithUserID(u.ID).WithField("role", u.Role).Infof("user registered")
	return s.issue(ctx, u)
}

// storePhoto downsizes an image and stores it under profile-photos/.
func (s *AuthService) storePhoto(ctx context.Context, f Upload) (*storage.UploadResponse, error) {
	data, ct, err := utils.ResizeImage(f.Body, photoMaxEdge)
	if errors.Is(err, utils.ErrUnsupportedImage) {
		return nil, invalid("profile_photo must be a JPEG, PNG or GIF image")
	}
	if err != nil {
		return nil, fmt.Errorf("resize photo: %w", err)
	}
	ext := ".jpg"
	if ct == "image/png" {
		ext = ".png"
	}
	up, err := s.files.Upload(ctx, &storage.UploadRequest{
		Key:         storage.NewKey("profile-photos", "photo"+ext),
		Reader:      bytes.NewReader(data),
		ContentType: ct,
		Size:        int64(len(data)),
	})
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}
	return up, nil
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	at, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, u.Name, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, fmt.Errorf("refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp, s.now()); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Session{
		User:             u,
		AccessToken:      at.Token,
		AccessExpiresAt:  at.Exp,
		RefreshToken:     rt.Raw,
		RefreshExpiresAt: rt.Exp,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, unauthorized("invalid credentials")
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, unauthorized("invalid credentials")
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	if raw == "" {
		return Session{}, invalid("refresh_token is required")
	}
	hash := utils.HashRefreshRaw(raw)
	now := s.now()
	userID, err := s.tokens.ValidateRefresh(ctx, hash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, unauthorized("invalid refresh token")
	}
	if err != nil {
		return Session{}, fmt.Errorf("validate refresh token: %w", err)
	}
	if err := s.tokens.RevokeByHash(ctx, hash, now); err != nil {
		return Session{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, unauthorized("invalid refresh token")
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.issue(ctx, u)
}

// Logout revokes the given refresh token, or every token of userID when no
// token is given.
func (s *AuthService) Logout(ctx context.Context, raw string, userID uint64) error {
	now := s.now()
	switch {
	case raw != "":
		if err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw), now); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	case userID != 0:
		if err := s.tokens.RevokeAllForUser(ctx, userID, now); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	default:
		return invalid("refresh_token is required")
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return u, notFound("user not found")
	}
	if err != nil {
		return u, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// ProfileInput is a partial profile update.
type ProfileInput struct {
	Name        *string         `json:"name"`
	Phone       *string         `json:"phone"`
	Bio         *string         `json:"bio"`
	Preferences json.RawMessage `json:"preferences"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (model.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return u, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return u, invalid("name must not be empty")
		}
		u.Name = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len(bio) > 1000 {
			return u, invalid("bio must be at most 1000 characters")
		}
		u.Bio = bio
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != u.Phone {
			u.Phone = phone
			u.PhoneVerified = false
		}
	}
	if len(in.Preferences) > 0 {
		if string(in.Preferences) == "null" {
			u.Preferences = nil
		} else {
			if err := validatePreferences(ctx, s.prefs, in.Preferences); err != nil {
				return u, err
			}
			var buf bytes.Buffer
			if err := json.Compact(&buf, in.Preferences); err != nil {
				return u, invalid("preferences must be a JSON object")
			}
			u.Preferences = buf.Bytes()
		}
	}
	now := s.now()
	if err := s.users.UpdateProfile(ctx, u, now); err != nil {
		return u, fmt.Errorf("update profile: %w", err)
	}
	u.UpdatedAt = now
	return u, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return unauthorized("current password is incorrect")
	}
	if len(next) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	hash, err := utils.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdatePhoto replaces the profile photo.
func (s *AuthService) UpdatePhoto(ctx context.Context, userID uint64, f Upload) (model.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return u, err
	}
	up, err := s.storePhoto(ctx, f)
	if err != nil {
		return u, err
	}
	now := s.now()
	if err := s.users.UpdatePhoto(ctx, userID, up.URL, now); err != nil {
		_ = s.files.Delete(ctx, up.Key)
		return u, fmt.Errorf("update photo: %w", err)
	}
	u.ProfilePhoto, u.UpdatedAt = up.URL, now
	return u, nil
}

// SendPhoneCode texts a 6 digit code to the user's phone.
func (s *AuthService) SendPhoneCode(ctx context.Context, userID uint64) (time.Duration, error) {
	if s.codes == nil {
		return 0, errf(KindUnavailable, "phone verification is not available")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u.Phone == "" {
		return 0, badRequest("add a phone number to your profile first")
	}
	if u.PhoneVerified {
		return 0, badRequest("phone number already verified")
	}
	code, err := utils.RandomDigits(6)
	if err != nil {
		return 0, fmt.Errorf("generate code: %w", err)
	}
	if err := s.codes.Put(ctx, userID, u.Phone, code, s.cfg.CodeTTL); err != nil {
		return 0, errf(KindUnavailable, "phone verification is not available")
	}
	if err := s.sms.Send(ctx, u.Phone, "Your TripShare verification code is "+code); err != nil {
		s.log.WithUserID(userID).WithError(err).Warnf("verification sms failed")
		return 0, errf(KindUnavailable, "could not send the verification code")
	}
	return s.cfg.CodeTTL, nil
}

// VerifyPhone checks a code.  A code can be tried once.
func (s *AuthService) VerifyPhone(ctx context.Context, userID uint64, code string) error {
	if s.codes == nil {
		return errf(KindUnavailable, "phone verification is not available")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return invalid("code is required")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	phone, want, err := s.codes.Take(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return badRequest("verification code expired or not requested")
	}
	if err != nil {
		return errf(KindUnavailable, "phone verification is not available")
	}
	if phone != u.Phone {
		return badRequest("phone number changed, request a new code")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(want)) != 1 {
		return badRequest("invalid verification code")
	}
	if err := s.users.SetPhoneVerified(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("verify phone: %w", err)
	}
	return nil
}

// Profile is the public view of a user.
type Profile struct {
	model.PublicUser
	Rating model.RatingSummary `json:"rating"`
}

func (s *AuthService) PublicProfile(ctx context.Context, id uint64) (Profile, error) {
	u, err := s.Me(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	sum, err := s.ratings.Summary(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("rating summary: %w", err)
	}
	sum.Average = float64(int(sum.Average*100+0.5)) / 100
	return Profile{PublicUser: u.Public(), Rating: sum}, nil
}
