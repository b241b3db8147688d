package product

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// StockWriter adjusts qty_available inside a caller-owned transaction.
type StockWriter struct{}

// NewStockWriter returns the stock writer used by checkout and cancellation.
func NewStockWriter() *StockWriter {
	return &StockWriter{}
}

// DecrementStockTx removes qty units only while enough stock remains. It
// reports false when the guard rejected the update so concurrent checkouts
// cannot drive stock negative.
func (w *StockWriter) DecrementStockTx(tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error) {
	res := tx.Model(&models.ProductVariant{}).
		Where("id = ? AND qty_available >= ?", variantID, qty).
		UpdateColumn("qty_available", gorm.Expr("qty_available - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStockTx returns qty units. A variant that no longer exists is a no-op.
func (w *StockWriter) RestoreStockTx(tx *gorm.DB, variantID uuid.UUID, qty int) error {
	return tx.Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("qty_available", gorm.Expr("qty_available + ?", qty)).
		Error
}
