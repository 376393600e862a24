package repositories

import (
	"context"
	"errors"
	"fmt"

	"tourneypay/internal/models"
	"tourneypay/internal/repositories/cache"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
	log   *zap.Logger
}

// NewUserRepository creates a new instance of UserRepository. cache may be
// nil, in which case every lookup goes to the database.
func NewUserRepository(db *gorm.DB, cache *cache.CacheService, log *zap.Logger) UserRepository {
	return &userRepository{
		db:    db,
		cache: cache,
		log:   log,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return storeError("create user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if r.cache != nil {
		if user, err := r.cache.GetUser(ctx, id); err == nil && user != nil {
			return user, nil
		} else if err != nil {
			r.log.Debug("user cache read failed", zap.Uint("user_id", id), zap.Error(err))
		}
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheUser(ctx, &user); err != nil {
			r.log.Warn("failed to cache user", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}
	return &user, nil
}

func (r *userRepository) ResolveUserID(ctx context.Context, username string) (uint, error) {
	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r *userRepository) UserExists(ctx context.Context, userID uint) (bool, error) {
	user, err := r.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Status == models.UserStatusActive, nil
}

func (r *userRepository) IsWalletOwner(ctx context.Context, userID uint) (bool, error) {
	user, err := r.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.CanOwnWallet(), nil
}

type beneficiaryRepository struct {
	db *gorm.DB
}

func NewBeneficiaryRepository(db *gorm.DB) BeneficiaryRepository {
	return &beneficiaryRepository{db: db}
}

// ResolveBeneficiaryUser credits team donations to the captain, tournament
// donations to the organizer and user donations to the user itself.
func (r *beneficiaryRepository) ResolveBeneficiaryUser(ctx context.Context, targetType string, targetID uint) (uint, error) {
	var (
		userID uint
		err    error
	)

	switch targetType {
	case models.EntityTypeTeam:
		var team models.Team
		err = r.db.WithContext(ctx).First(&team, targetID).Error
		userID = team.CaptainUserID
	case models.EntityTypeTournament:
		var tournament models.Tournament
		err = r.db.WithContext(ctx).First(&tournament, targetID).Error
		userID = tournament.OrganizerUserID
	case models.EntityTypeUser:
		var user models.User
		err = r.db.WithContext(ctx).First(&user, targetID).Error
		userID = user.ID
	default:
		return 0, fmt.Errorf("%w: unknown target type %q", ErrTargetNotFound, targetType)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s %d", ErrTargetNotFound, targetType, targetID)
	}
	if err != nil {
		return 0, storeError("resolve beneficiary", err)
	}
	if userID == 0 {
		return 0, fmt.Errorf("%w: %s %d has no owner", ErrTargetNotFound, targetType, targetID)
	}
	return userID, nil
}
