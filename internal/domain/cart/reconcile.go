// internal/domain/cart/reconcile.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// reconcileLockTTL bounds how long a crashed reconciliation can block the
// next login for the same user.
const reconcileLockTTL = 10 * time.Second

// Reconcile folds the anonymous cart identified by sessionToken into the
// cart of userID. Afterwards exactly one cart is addressable by the user and
// the anonymous cart is gone. The merge and deletion run in one transaction,
// so a failure leaves the store exactly as it was.
//
// Calling Reconcile when no guest cart exists (including a second call with
// the same, now consumed, session token) is a no-op.
func (s *Service) Reconcile(ctx context.Context, sessionToken string, userID uint) (*CartResponse, error) {
	if userID == 0 {
		return nil, apperrors.Validationf("user id required")
	}

	// Serialize reconciliations per user. Two simultaneous logins would
	// otherwise both observe the pre-merge state and double the quantities.
	lockKey := reconcileLockKey(userID)
	acquired, err := s.locker.Acquire(ctx, lockKey, reconcileLockTTL)
	if err != nil {
		return nil, apperrors.Storagef("reconcile lock: %v", err)
	}
	if !acquired {
		return nil, fmt.Errorf("cart reconciliation already running for user %d: %w", userID, apperrors.ErrConflict)
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey); err != nil {
			logrus.WithError(err).WithField("user_id", userID).
				Warn("failed to release cart reconciliation lock")
		}
	}()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.findCart(tx, SessionOwner(sessionToken))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Nothing to merge
				return nil
			}
			return err
		}

		userCart, err := s.findCart(tx, UserOwner(userID))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No user cart yet: re-own the guest cart wholesale
				return tx.Model(&Cart{}).Where("id = ?", guest.ID).
					Updates(map[string]interface{}{
						"user_id":       userID,
						"session_token": nil,
					}).Error
			}
			return err
		}

		if err := mergeItems(tx, guest, userCart); err != nil {
			return err
		}

		return deleteCart(tx, guest.ID)
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("cart reconciliation failed: %v", err)
	}

	return s.GetCart(ctx, UserOwner(userID))
}

// mergeItems folds every guest line into the user cart: matching product
// lines have their quantities summed, the rest move over as new lines.
func mergeItems(tx *gorm.DB, guest, userCart *Cart) error {
	for _, guestLine := range guest.Items {
		var existing CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", userCart.ID, guestLine.ProductID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			line := CartItem{
				CartID:    userCart.ID,
				ProductID: guestLine.ProductID,
				Quantity:  guestLine.Quantity,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			newQuantity := existing.Quantity + guestLine.Quantity
			if err := tx.Model(&existing).Update("quantity", newQuantity).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
