package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
	"github.com/iliyamo/rolegate/internal/utils"
)

var emailRe = regexp.MustCompile(`^[\w._%+\-]+@[\w.\-]+\.[A-Za-z]{2,}$`)

var roleList = func() string {
	names := make([]string, 0, len(role.All()))
	for _, r := range role.All() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}()

// AccountService is the credential store: registration, authentication and
// the account's own profile.
type AccountService struct {
	accounts AccountStore
	events   emitter
	log      *zap.Logger
	cost     int

	// dummyHash is compared against when the email is unknown so that a
	// failed login costs one bcrypt comparison whatever the cause.
	dummyHash string
}

func NewAccountService(accounts AccountStore, pub queue.Publisher, log *zap.Logger, bcryptCost int) (*AccountService, error) {
	dummy, err := utils.HashPassword("rolegate-dummy-password", bcryptCost)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		accounts:  accounts,
		events:    newEmitter(pub, log),
		log:       log,
		cost:      bcryptCost,
		dummyHash: dummy,
	}, nil
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Role            string
	FullName        string
	Phone           string
	Bio             string
}

// Register validates the input and creates the account and its profile
// atomically.  The password is stored as a bcrypt hash only.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Account, model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fe := fieldErrors{}
	switch {
	case email == "":
		fe.add("email", "required")
	case !emailRe.MatchString(email):
		fe.add("email", "invalid email address")
	}
	switch {
	case in.Password == "":
		fe.add("password", "required")
	case len(in.Password) < utils.MinPasswordLen:
		fe.add("password", "must be at least 8 characters")
	case len(in.Password) > utils.MaxPasswordBytes:
		fe.add("password", "must be at most 72 bytes")
	}
	if in.Password != in.PasswordConfirm {
		fe.add("password_confirm", "passwords do not match")
	}
	r, err := role.Parse(in.Role)
	if err != nil {
		fe.add("role", "must be one of "+roleList)
	}
	if err := fe.err(); err != nil {
		return model.Account{}, model.Profile{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return model.Account{}, model.Profile{}, apperr.Internal(err)
	}
	acct := model.Account{Email: email, PasswordHash: hash, Role: r}
	prof := model.Profile{
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Bio:      in.Bio,
	}
	if err := s.accounts.CreateWithProfile(ctx, &acct, &prof); err != nil {
		return model.Account{}, model.Profile{}, storeErr(err, "account")
	}
	s.log.Info("account registered", zap.Uint64("account_id", acct.ID), zap.String("role", string(acct.Role)))
	s.events.emit(ctx, queue.EventAccountRegistered, acct.ID, acct.ID, string(acct.Role))
	return acct, prof, nil
}

// Authenticate checks credentials.  Unknown email, wrong password and a
// deactivated account all return apperr.ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, apperr.Internal(err)
		}
		utils.VerifyPassword(s.dummyHash, password)
		return model.Account{}, apperr.ErrInvalidCredentials
	}
	if !utils.VerifyPassword(acct.PasswordHash, password) || !acct.IsActive {
		return model.Account{}, apperr.ErrInvalidCredentials
	}
	return acct, nil
}

// Me returns the caller's account and profile.
func (s *AccountService) Me(ctx context.Context, accountID uint64) (model.Account, model.Profile, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, model.Profile{}, storeErr(err, "account")
	}
	prof, err := s.accounts.GetProfile(ctx, accountID)
	if err != nil {
		return model.Account{}, model.Profile{}, storeErr(err, "profile")
	}
	return acct, prof, nil
}

// ProfileInput holds the client editable profile attributes.
type ProfileInput struct {
	FullName string
	Phone    string
	Bio      string
}

// UpdateProfile replaces the caller's own profile attributes.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID uint64, in ProfileInput) (model.Profile, error) {
	fe := fieldErrors{}
	if len(in.FullName) > 150 {
		fe.add("full_name", "must be at most 150 characters")
	}
	if len(in.Phone) > 30 {
		fe.add("phone", "must be at most 30 characters")
	}
	if err := fe.err(); err != nil {
		return model.Profile{}, err
	}
	p := model.Profile{
		AccountID: accountID,
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     strings.TrimSpace(in.Phone),
		Bio:       in.Bio,
	}
	if err := s.accounts.UpdateProfile(ctx, &p); err != nil {
		return model.Profile{}, storeErr(err, "profile")
	}
	return s.accounts.GetProfile(ctx, accountID)
}

// Deactivate soft-deletes the caller's account and revokes every refresh
// token it holds.
func (s *AccountService) Deactivate(ctx context.Context, accountID uint64) error {
	if err := s.accounts.Deactivate(ctx, accountID); err != nil {
		return storeErr(err, "account")
	}
	s.log.Info("account deactivated", zap.Uint64("account_id", accountID))
	s.events.emit(ctx, queue.EventAccountDeactivated, accountID, accountID, "")
	return nil
}
