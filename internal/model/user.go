// Package model holds the bun models used by the qcache command.
package model

import "github.com/uptrace/bun"

// User is a row of the user table.
type User struct {
	bun.BaseModel `bun:"table:user,alias:u"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Age   *int32 `bun:"age" json:"age,omitempty"`
	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email,notnull,unique" json:"email"`
}

// ByName returns the select for users with the given name.
func ByName(db bun.IDB, name string) *bun.SelectQuery {
	return db.NewSelect().Model((*User)(nil)).Where("?TableAlias.name = ?", name)
}
