/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/dynbias/internal/models"
)

// Migrate creates or updates the collection schema.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Track{},
		&models.SavedBias{},
	)
}
