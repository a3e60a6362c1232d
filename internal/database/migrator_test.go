package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	for name, tc := range map[string]struct {
		db      *DB
		dir     string
		wantMsg string
	}{
		"nil database": {nil, "migrations", "database connection is required"},
		"nil pool":     {&DB{}, "migrations", "database connection is required"},
	} {
		t.Run(name, func(t *testing.T) {
			mg, err := NewMigrator(tc.db, tc.dir, logger)
			assert.Nil(t, mg)
			assert.ErrorContains(t, err, tc.wantMsg)
		})
	}
}

func TestNewMigrator_DirectoryMustExist(t *testing.T) {
	db := dialLocalDB(t)
	defer db.Close()

	mg, err := NewMigrator(db, "does/not/exist", zerolog.Nop())
	assert.Nil(t, mg)
	assert.ErrorContains(t, err, "migrations directory")

	mg, err = NewMigrator(db, "", zerolog.Nop())
	assert.Nil(t, mg)
	assert.ErrorContains(t, err, "migrations directory is required")
}
