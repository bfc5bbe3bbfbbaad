package repository

import (
	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	MarkEmailConfirmed(id uint) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkEmailConfirmed flips the confirmed flag and clears the pending
// confirmation requirement on the account record.
func (r *userRepository) MarkEmailConfirmed(id uint) error {
	err := r.db.Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_confirmed":       true,
			"confirmation_required": false,
		}).Error
	if err != nil {
		logger.Error("Failed to mark user email confirmed", err, map[string]interface{}{
			"user_id": id,
		})
	}
	return err
}
