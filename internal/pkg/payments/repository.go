package payments

import (
	"context"
	"time"

	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payment flows.
type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. Returning an error rolls it back.
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	FindSubject(ctx context.Context, id uint) (*models.Subject, error)

	FindOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error)
	FindOrderByProviderID(ctx context.Context, providerID string) (*models.Order, error)
	LockOrderByProviderID(ctx context.Context, providerID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) error

	FindSubscription(ctx context.Context, id uint) (*models.Subscription, error)
	FindSubscriptionByOrder(ctx context.Context, orderID uint) (*models.Subscription, error)
	CreateSubscriptionIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error)
	ExtendSubscription(ctx context.Context, id uint, endDate time.Time) error
	DeactivateSubscription(ctx context.Context, id uint) error
	ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)

	CreateCallback(ctx context.Context, cb *models.PaymentCallback) error
	MarkCallbackProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) FindSubject(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *gormRepository) FindOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) FindOrderByProviderID(ctx context.Context, providerID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrderByProviderID reads the order with SELECT ... FOR UPDATE. It must be
// called inside Transaction; sqlite ignores the locking clause and relies on
// its single writer instead.
func (r *gormRepository) LockOrderByProviderID(ctx context.Context, providerID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ?", providerID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormRepository) UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

// FindSubscription loads a subscription with its funding order.
func (r *gormRepository) FindSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Preload("Order").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindSubscriptionByOrder(ctx context.Context, orderID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriptionIfNotExists inserts sub unless a row for the same
// (parent, subject, order) already exists. It reports whether a row was
// inserted.
func (r *gormRepository) CreateSubscriptionIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "parent_id"},
			{Name: "subject_id"},
			{Name: "order_id"},
		},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ExtendSubscription writes only end_date, leaving updated_at untouched.
func (r *gormRepository) ExtendSubscription(ctx context.Context, id uint, endDate time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("end_date", endDate.UTC()).Error
}

// DeactivateSubscription writes only active.
func (r *gormRepository) DeactivateSubscription(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("active", false).Error
}

func (r *gormRepository) ListDueSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("active = ? AND end_date <= ?", true, now.UTC()).
		Order("end_date ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateCallback(ctx context.Context, cb *models.PaymentCallback) error {
	return r.db.WithContext(ctx).Create(cb).Error
}

func (r *gormRepository) MarkCallbackProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.PaymentCallback{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}
