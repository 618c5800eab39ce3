package models

import "time"

// Contact is one validated row of an accepted upload. Rows are never updated;
// they disappear individually (admin) or together with their upload.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Correo    string    `gorm:"size:255;not null" json:"correo"`
	Nombre    string    `gorm:"size:255;not null" json:"nombre"`
	Telefono  string    `gorm:"size:64;not null" json:"telefono"`
	Ciudad    string    `gorm:"size:255;not null" json:"ciudad"`
	Notas     *string   `gorm:"type:text" json:"notas"`
	UploadID  uint      `gorm:"index;not null" json:"uploadId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
