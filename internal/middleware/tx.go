package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const txKey = "tx"

// Transaction gives every request its own unit of work: begun here,
// committed once the handler chain succeeds, rolled back on error or
// panic. Nothing is shared across requests.
func Transaction(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := db.Begin()
		if tx.Error != nil {
			return tx.Error
		}
		c.Locals(txKey, tx)

		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()

		if err := c.Next(); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit().Error
	}
}

// Tx returns the request transaction, or fallback when the route runs
// outside Transaction (health, websocket).
func Tx(c *fiber.Ctx, fallback *gorm.DB) *gorm.DB {
	if tx, ok := c.Locals(txKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}
