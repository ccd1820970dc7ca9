package users

import (
	"context"
	"errors"
	"strings"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StoreInput struct {
	Name              string `json:"name"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	AdministratorName string `json:"administrator_name"`
}

func (s *Service) CreateStore(ctx context.Context, in StoreInput) (models.Store, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Store{}, apperr.Validation("store name is required")
	}
	store := models.Store{
		Name:              strings.TrimSpace(in.Name),
		Address:           in.Address,
		Phone:             in.Phone,
		AdministratorName: in.AdministratorName,
	}
	if err := s.db.WithContext(ctx).Create(&store).Error; err != nil {
		return models.Store{}, apperr.Infra("create store", err)
	}
	s.log.Info("store created", zap.Stringer("store_id", store.ID), zap.String("name", store.Name))
	return store, nil
}

func (s *Service) ListStores(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := s.db.WithContext(ctx).Order("name").Find(&stores).Error; err != nil {
		return nil, apperr.Infra("list stores", err)
	}
	return stores, nil
}

// AdminInput creates the first admin of a store.
type AdminInput struct {
	StoreID uuid.UUID `json:"store_id"`
	UserInput
}

func (s *Service) CreateStoreAdmin(ctx context.Context, in AdminInput) (models.User, error) {
	if in.StoreID == uuid.Nil {
		return models.User{}, apperr.Validation("store is required")
	}
	var store models.Store
	err := s.db.WithContext(ctx).First(&store, "id = ?", in.StoreID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperr.NotFound("store %s", in.StoreID)
	}
	if err != nil {
		return models.User{}, apperr.Infra("load store", err)
	}
	in.IsAdmin = true
	return s.createUser(ctx, store.ID, in.UserInput)
}

// RegisterSuperAdmin creates a superadmin account. The HTTP route for it only
// exists when registration is enabled.
func (s *Service) RegisterSuperAdmin(ctx context.Context, username, password string) (models.SuperAdmin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.SuperAdmin{}, apperr.Validation("username and password are required")
	}
	if err := s.usernameFree(ctx, username, uuid.Nil); err != nil {
		return models.SuperAdmin{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.SuperAdmin{}, err
	}
	sa := models.SuperAdmin{Username: username, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&sa).Error; err != nil {
		return models.SuperAdmin{}, apperr.Infra("create superadmin", err)
	}
	s.log.Info("superadmin registered", zap.String("username", username))
	return sa, nil
}
