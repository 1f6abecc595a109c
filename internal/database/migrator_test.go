package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewMigratorValidation(t *testing.T) {
	tests := []struct {
		name    string
		db      *DB
		path    string
		wantErr string
	}{
		{
			name:    "nil database",
			db:      nil,
			path:    "/some/path",
			wantErr: "database is required",
		},
		{
			name:    "nil pool",
			db:      &DB{},
			path:    "/some/path",
			wantErr: "database pool not initialized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrator, err := NewMigrator(tt.db, tt.path, zerolog.Nop())
			assert.Nil(t, migrator)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
