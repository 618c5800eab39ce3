// Package store is the gorm-backed persistence for uploads and contacts.
package store

import (
	"context"
	"errors"
	"fmt"

	"contactos/models"
	"contactos/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// contacts are inserted in chunks of this size inside the upload transaction
const batchSize = 500

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveBatch creates the upload and every contact in one transaction. On error
// nothing is left behind and upload.ID is reset.
func (s *Store) SaveBatch(ctx context.Context, upload *models.Upload, contacts []models.Contact) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(upload).Error; err != nil {
			return fmt.Errorf("create upload: %w", err)
		}
		if len(contacts) == 0 {
			return nil
		}
		for i := range contacts {
			contacts[i].UploadID = upload.ID
		}
		if err := tx.CreateInBatches(contacts, batchSize).Error; err != nil {
			return fmt.Errorf("create contacts: %w", err)
		}
		return nil
	})
	if err != nil {
		upload.ID = 0
	}
	return err
}

// UploadFilter restricts ListUploads. A nil UploadedByID lists every upload.
type UploadFilter struct {
	UploadedByID *uint
}

// ListUploads returns newest uploads first.
func (s *Store) ListUploads(ctx context.Context, f UploadFilter, p Page) ([]models.Upload, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Upload{})
	if f.UploadedByID != nil {
		q = q.Where("uploaded_by_id = ?", *f.UploadedByID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var uploads []models.Upload
	if err := q.Order("uploaded_at desc, id desc").Limit(p.Limit).Offset(p.Offset()).Find(&uploads).Error; err != nil {
		return nil, 0, err
	}
	return uploads, total, nil
}

func (s *Store) GetUpload(ctx context.Context, id uint) (*models.Upload, error) {
	var up models.Upload
	if err := s.db.WithContext(ctx).First(&up, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Carga", id)
		}
		return nil, err
	}
	return &up, nil
}

// CountContacts returns how many contacts currently belong to the upload.
func (s *Store) CountContacts(ctx context.Context, uploadID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Contact{}).Where("upload_id = ?", uploadID).Count(&n).Error
	return n, err
}

// DeleteUpload removes the upload and its contacts together.
func (s *Store) DeleteUpload(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&models.Contact{}).Error; err != nil {
			return fmt.Errorf("delete contacts: %w", err)
		}
		res := tx.Delete(&models.Upload{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete upload: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Carga", id)
		}
		return nil
	})
}

// ContactFilter restricts ListContacts. A nil UploadID lists every contact.
type ContactFilter struct {
	UploadID *uint
}

// ListContacts returns contacts in insertion order.
func (s *Store) ListContacts(ctx context.Context, f ContactFilter, p Page) ([]models.Contact, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Contact{})
	if f.UploadID != nil {
		q = q.Where("upload_id = ?", *f.UploadID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var contacts []models.Contact
	if err := q.Order("id asc").Limit(p.Limit).Offset(p.Offset()).Find(&contacts).Error; err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (s *Store) GetContact(ctx context.Context, id uint) (*models.Contact, error) {
	var c models.Contact
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Contacto", id)
		}
		return nil, err
	}
	return &c, nil
}

// DeleteContact removes one contact. The owning upload's TotalRecords is left
// as imported.
func (s *Store) DeleteContact(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Contact{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Contacto", id)
	}
	return nil
}
