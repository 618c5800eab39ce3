package models

import (
	"time"
)

// Upload is one accepted contact file. It is only created after every row of
// the file validated, and TotalRecords is the number of contacts imported with it.
type Upload struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OriginalFileName string    `gorm:"size:255;not null" json:"originalFileName"`
	StoredPath       string    `gorm:"size:512;not null" json:"storedPath"`
	TotalRecords     int       `gorm:"not null" json:"totalRecords"`
	UploadedByID     uint      `gorm:"index;not null" json:"uploadedById"`
	UploadedBy       User      `gorm:"foreignKey:UploadedByID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UploadedAt       time.Time `gorm:"autoCreateTime;index" json:"uploadedAt"`
	Contacts         []Contact `gorm:"foreignKey:UploadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
