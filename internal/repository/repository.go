package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withRowLock adds FOR UPDATE on dialects that support it. SQLite (tests)
// serializes writers at the database level, so the clause is skipped there.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
