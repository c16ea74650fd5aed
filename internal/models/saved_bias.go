/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SavedBias is a named bias definition kept in its persisted XML form.
type SavedBias struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex;size:191"`
	Type        string `gorm:"type:varchar(64);index"`
	Description string
	Definition  string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
