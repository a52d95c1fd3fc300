package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
)

// DLQRepository parks events the publisher gave up on.
type DLQRepository struct{}

func NewDLQRepository() *DLQRepository {
	return &DLQRepository{}
}

// InsertTx writes the dead letter inside the publisher's batch transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := clipError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}
