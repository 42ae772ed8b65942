package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/validation"
)

const (
	userKey  = "user"
	usersKey = "users"
)

// SignUpRequest содержит данные формы регистрации.
type SignUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (f *Storefront) loadDirectory(ctx context.Context) []model.User {
	users, _ := loadDoc[[]model.User](ctx, f, usersKey)
	return users
}

func userIndex(users []model.User, id int64) int {
	return slices.IndexFunc(users, func(u model.User) bool { return u.ID == id })
}

func emailTaken(users []model.User, email string, exceptID int64) bool {
	normalized := validation.NormalizeEmail(email)
	return slices.ContainsFunc(users, func(u model.User) bool {
		return u.ID != exceptID && validation.NormalizeEmail(u.Email) == normalized
	})
}

// sessionUser возвращает пользователя активной сессии. Актуальной считается
// запись справочника, копия в сессии используется, если записи нет.
func (f *Storefront) sessionUser(ctx context.Context) (model.User, error) {
	active, ok := loadDoc[model.User](ctx, f, userKey)
	if !ok || active.ID == 0 {
		return model.User{}, errLoginRequired()
	}

	users := f.loadDirectory(ctx)
	if i := userIndex(users, active.ID); i >= 0 {
		return users[i], nil
	}
	return active, nil
}

// saveUser записывает пользователя в слот сессии, если он активен, и в справочник.
// При ошибке записи справочника слот сессии возвращается в прежнее состояние.
func (f *Storefront) saveUser(ctx context.Context, u model.User) error {
	users := f.loadDirectory(ctx)
	i := userIndex(users, u.ID)
	if i < 0 {
		return notFound("user", u.ID)
	}

	prevSession := f.readDoc(ctx, userKey)
	active, ok := loadDoc[model.User](ctx, f, userKey)
	writeSession := ok && active.ID == u.ID

	if writeSession {
		if err := f.saveDoc(ctx, userKey, u); err != nil {
			return err
		}
	}

	users[i] = u
	if err := f.saveDoc(ctx, usersKey, users); err != nil {
		if writeSession {
			if rbErr := f.restoreDoc(ctx, userKey, prevSession); rbErr != nil {
				f.logger.Error("session rollback failed", zap.Int64("user_id", u.ID), zap.Error(rbErr))
			}
		}
		return err
	}
	return nil
}

// SignUp регистрирует пользователя в справочнике клиента и открывает для него сессию.
func (f *Storefront) SignUp(ctx context.Context, req SignUpRequest) (model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)

	switch {
	case name == "":
		return model.User{}, &ValidationError{Field: "name", Reason: ReasonRequired}
	case !validation.IsValidEmail(email):
		return model.User{}, &ValidationError{Field: "email", Reason: ReasonInvalidFormat}
	case !validation.IsValidPassword(req.Password):
		return model.User{}, &ValidationError{Field: "password", Reason: ReasonTooShort}
	case req.Password != req.ConfirmPassword:
		return model.User{}, &ValidationError{Field: "confirmPassword", Reason: ReasonMismatch}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	users := f.loadDirectory(ctx)
	if emailTaken(users, email, 0) {
		return model.User{}, &ValidationError{Field: "email", Reason: ReasonTaken}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.svc.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := f.svc.now()
	u := model.User{
		ID:           nextUserID(users, now.UnixMilli()),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		JoinDate:     now,
	}

	prevUsers := f.readDoc(ctx, usersKey)
	if err := f.saveDoc(ctx, usersKey, append(users, u)); err != nil {
		return model.User{}, err
	}
	if err := f.saveDoc(ctx, userKey, u); err != nil {
		if rbErr := f.restoreDoc(ctx, usersKey, prevUsers); rbErr != nil {
			f.logger.Error("directory rollback failed", zap.Int64("user_id", u.ID), zap.Error(rbErr))
		}
		return model.User{}, err
	}

	f.logger.Info("user registered", zap.Int64("user_id", u.ID))
	f.bus.Publish(notify.WalletUpdated, notify.OrderHistoryUpdated)
	return u, nil
}

// nextUserID выдаёт идентификатор на основе времени, строго больший всех существующих.
func nextUserID(users []model.User, candidate int64) int64 {
	for _, u := range users {
		if u.ID >= candidate {
			candidate = u.ID + 1
		}
	}
	return candidate
}

// LogIn открывает сессию для пользователя справочника.
func (f *Storefront) LogIn(ctx context.Context, email, password string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := f.loadDirectory(ctx)
	normalized := validation.NormalizeEmail(email)
	i := slices.IndexFunc(users, func(u model.User) bool {
		return validation.NormalizeEmail(u.Email) == normalized
	})
	if i < 0 {
		return model.User{}, errInvalidCredentials()
	}

	u := users[i]
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return model.User{}, errInvalidCredentials()
	}

	if err := f.saveDoc(ctx, userKey, u); err != nil {
		return model.User{}, err
	}

	f.bus.Publish(notify.WalletUpdated, notify.OrderHistoryUpdated)
	return u, nil
}

// LogOut закрывает активную сессию. Справочник пользователей не меняется.
func (f *Storefront) LogOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deleteDoc(ctx, userKey); err != nil {
		return err
	}

	f.bus.Publish(notify.WalletUpdated, notify.OrderHistoryUpdated)
	return nil
}

// CurrentUser возвращает пользователя активной сессии.
func (f *Storefront) CurrentUser(ctx context.Context) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sessionUser(ctx)
}

// UpdateProfile изменяет профиль пользователя активной сессии.
func (f *Storefront) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return model.User{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.User{}, &ValidationError{Field: "name", Reason: ReasonRequired}
		}
		u.Name = name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !validation.IsValidEmail(email) {
			return model.User{}, &ValidationError{Field: "email", Reason: ReasonInvalidFormat}
		}
		if emailTaken(f.loadDirectory(ctx), email, u.ID) {
			return model.User{}, &ValidationError{Field: "email", Reason: ReasonTaken}
		}
		u.Email = email
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*upd.PhoneNumber)
	}
	if upd.Address != nil {
		u.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.Avatar != nil {
		u.Avatar = strings.TrimSpace(*upd.Avatar)
	}

	if err := f.saveUser(ctx, u); err != nil {
		return model.User{}, err
	}

	f.bus.Publish(notify.WalletUpdated)
	return u, nil
}
