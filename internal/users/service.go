// Package users handles login, store user administration and the superadmin
// side that provisions stores.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	tokens *auth.Tokens
	log    *zap.Logger
}

func NewService(db *gorm.DB, tokens *auth.Tokens, log *zap.Logger) *Service {
	return &Service{db: db, tokens: tokens, log: log.Named("users")}
}

// Session is what a successful login returns.
type Session struct {
	Token      string     `json:"token"`
	Username   string     `json:"username"`
	SuperAdmin bool       `json:"super_admin"`
	IsAdmin    bool       `json:"is_admin"`
	StoreID    *uuid.UUID `json:"store_id,omitempty"`
	StoreName  string     `json:"store_name,omitempty"`
	Name       string     `json:"name,omitempty"`
}

var errBadCredentials = apperr.Unauthenticated("invalid credentials")

// Login checks superadmins first, then store users.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, apperr.Validation("username and password are required")
	}
	db := s.db.WithContext(ctx)

	var sa models.SuperAdmin
	err := db.First(&sa, "username = ?", username).Error
	switch {
	case err == nil:
		if !checkPassword(sa.PasswordHash, password) {
			return Session{}, errBadCredentials
		}
		token, err := s.tokens.IssueSuperAdmin(sa.Username)
		if err != nil {
			return Session{}, apperr.Infra("sign token", err)
		}
		s.log.Info("superadmin logged in", zap.String("username", sa.Username))
		return Session{Token: token, Username: sa.Username, SuperAdmin: true}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Session{}, apperr.Infra("load superadmin", err)
	}

	var u models.User
	if err := db.Preload("Info").First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, errBadCredentials
		}
		return Session{}, apperr.Infra("load user", err)
	}
	if !checkPassword(u.PasswordHash, password) {
		return Session{}, errBadCredentials
	}
	if !u.Active {
		return Session{}, apperr.Forbidden("user %s is deactivated", u.Username)
	}

	var store models.Store
	if err := db.First(&store, "id = ?", u.StoreID).Error; err != nil {
		return Session{}, apperr.Infra("load store", err)
	}

	token, err := s.tokens.Issue(auth.Actor{UserID: u.ID, StoreID: u.StoreID, IsAdmin: u.IsAdmin})
	if err != nil {
		return Session{}, apperr.Infra("sign token", err)
	}
	sess := Session{
		Token:     token,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		StoreID:   &u.StoreID,
		StoreName: store.Name,
	}
	if u.Info != nil {
		sess.Name = u.Info.Name
	}
	s.log.Info("user logged in", zap.String("username", u.Username), zap.Stringer("store_id", u.StoreID))
	return sess, nil
}

// --- Store users ---

type UserInput struct {
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	IsAdmin    bool      `json:"is_admin"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date"`
}

func (s *Service) CreateUser(ctx context.Context, actor auth.Actor, in UserInput) (models.User, error) {
	if !actor.IsAdmin {
		return models.User{}, apperr.Forbidden("only admins manage users")
	}
	return s.createUser(ctx, actor.StoreID, in)
}

func (s *Service) createUser(ctx context.Context, storeID uuid.UUID, in UserInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return models.User{}, apperr.Validation("username and password are required")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return models.User{}, apperr.Validation("name and email are required")
	}
	if err := s.usernameFree(ctx, in.Username, uuid.Nil); err != nil {
		return models.User{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		StoreID:      storeID,
		Username:     in.Username,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
		Active:       true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return apperr.Infra("create user", err)
		}
		info := models.UserInfo{
			UserID:     u.ID,
			Name:       strings.TrimSpace(in.Name),
			Email:      strings.TrimSpace(in.Email),
			NationalID: in.NationalID,
			BirthDate:  in.BirthDate,
		}
		if err := tx.Create(&info).Error; err != nil {
			return apperr.Infra("create profile", err)
		}
		u.Info = &info
		return nil
	})
	if err != nil {
		return models.User{}, apperr.Infra("create user", err)
	}
	s.log.Info("user created", zap.String("username", u.Username), zap.Stringer("store_id", storeID))
	return u, nil
}

// UpdateUser edits a user of the admin's store. A blank password keeps the old one.
func (s *Service) UpdateUser(ctx context.Context, actor auth.Actor, id uuid.UUID, in UserInput) (models.User, error) {
	if !actor.IsAdmin {
		return models.User{}, apperr.Forbidden("only admins manage users")
	}
	u, err := s.storeUser(ctx, actor.StoreID, id)
	if err != nil {
		return models.User{}, err
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return models.User{}, apperr.Validation("username is required")
	}
	if in.Username != u.Username {
		if err := s.usernameFree(ctx, in.Username, u.ID); err != nil {
			return models.User{}, err
		}
	}

	updates := map[string]any{"username": in.Username, "is_admin": in.IsAdmin}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return models.User{}, err
		}
		updates["password_hash"] = hash
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
			return apperr.Infra("update user", err)
		}
		info := models.UserInfo{
			UserID:     u.ID,
			Name:       strings.TrimSpace(in.Name),
			Email:      strings.TrimSpace(in.Email),
			NationalID: in.NationalID,
			BirthDate:  in.BirthDate,
		}
		if u.Info != nil {
			info.ID = u.Info.ID
		}
		if err := tx.Save(&info).Error; err != nil {
			return apperr.Infra("update profile", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, apperr.Infra("update user", err)
	}
	return s.storeUser(ctx, actor.StoreID, id)
}

// DeactivateUser disables login for a user of the admin's store.
func (s *Service) DeactivateUser(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if !actor.IsAdmin {
		return apperr.Forbidden("only admins manage users")
	}
	if id == actor.UserID {
		return apperr.Validation("you cannot deactivate yourself")
	}
	u, err := s.storeUser(ctx, actor.StoreID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Update("active", false).Error; err != nil {
		return apperr.Infra("deactivate user", err)
	}
	s.log.Info("user deactivated", zap.String("username", u.Username))
	return nil
}

type UserList struct {
	Users    []models.User `json:"users"`
	Active   int           `json:"active"`
	Inactive int           `json:"inactive"`
	Admins   int           `json:"admins"`
}

func (s *Service) ListUsers(ctx context.Context, actor auth.Actor, search string) (UserList, error) {
	if !actor.IsAdmin {
		return UserList{}, apperr.Forbidden("only admins manage users")
	}
	q := s.db.WithContext(ctx).Preload("Info").Where("users.store_id = ?", actor.StoreID)
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(users.username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var list UserList
	if err := q.Order("users.username").Find(&list.Users).Error; err != nil {
		return UserList{}, apperr.Infra("list users", err)
	}
	for _, u := range list.Users {
		if u.Active {
			list.Active++
		} else {
			list.Inactive++
		}
		if u.IsAdmin {
			list.Admins++
		}
	}
	return list, nil
}

func (s *Service) storeUser(ctx context.Context, storeID, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Info").First(&u, "id = ? AND store_id = ?", id, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, apperr.NotFound("user %s", id)
	}
	if err != nil {
		return u, apperr.Infra("load user", err)
	}
	return u, nil
}

// usernameFree enforces system-wide unique usernames, superadmins included.
func (s *Service) usernameFree(ctx context.Context, username string, except uuid.UUID) error {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", username, except).Count(&n).Error; err != nil {
		return apperr.Infra("check username", err)
	}
	if n == 0 {
		if err := db.Model(&models.SuperAdmin{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return apperr.Infra("check username", err)
		}
	}
	if n > 0 {
		return apperr.Validation("username %q is taken", username)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Infra("hash password", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
