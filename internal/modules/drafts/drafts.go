package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/editor"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned for unknown draft ids and versions.
var ErrNotFound = errors.New("draft not found")

// Service keeps template drafts between CLI invocations. Every save stores
// the previous fields as a history snapshot and bumps the version.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("drafts")}
}

// Create stores tpl as a new draft at version 1. A template that already
// has a remote id is linked to it so a later publish updates it.
func (s *Service) Create(ctx context.Context, tpl models.Template) (*models.TemplateDraftModel, error) {
	d := models.TemplateDraftModel{Version: 1}
	applyTemplate(&d, tpl)
	if !tpl.ID.IsZero() {
		id := tpl.ID.String()
		d.TemplateID = &id
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	s.log.Info("draft created", zap.String("draft_id", d.ID), zap.String("profession", d.ProfessionKey))
	return &d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.TemplateDraftModel, error) {
	var d models.TemplateDraftModel
	err := s.db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("version DESC") }).
		First(&d, "id = ?", strings.TrimSpace(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns drafts, most recently modified first. An empty profession
// lists all of them.
func (s *Service) List(ctx context.Context, profession string) ([]models.TemplateDraftModel, error) {
	tx := s.db.WithContext(ctx).Model(&models.TemplateDraftModel{}).Order("updated_at DESC")
	if p := strings.TrimSpace(profession); p != "" {
		tx = tx.Where("profession_key = ?", p)
	}
	var items []models.TemplateDraftModel
	return items, tx.Find(&items).Error
}

// Save replaces the draft content with tpl and records the previous
// content as a snapshot.
func (s *Service) Save(ctx context.Context, id string, tpl models.Template) (*models.TemplateDraftModel, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snapshot(d)).Error; err != nil {
			return err
		}
		applyTemplate(d, tpl)
		d.Version++
		return tx.Omit(clause.Associations).Save(d).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	s.log.Debug("draft saved", zap.String("draft_id", d.ID), zap.Int("version", d.Version))
	return d, nil
}

// MarkPublished links the draft to the remote template it was published as.
func (s *Service) MarkPublished(ctx context.Context, id string, templateID models.RecordID) (*models.TemplateDraftModel, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	remote := templateID.String()
	if err := s.db.WithContext(ctx).Model(d).Updates(map[string]any{
		"template_id":  remote,
		"published_at": now,
	}).Error; err != nil {
		return nil, err
	}
	d.TemplateID = &remote
	d.PublishedAt = &now
	s.log.Info("draft published", zap.String("draft_id", d.ID), zap.String("template_id", remote))
	return d, nil
}

// History returns the snapshots of a draft, newest first.
func (s *Service) History(ctx context.Context, id string) ([]models.TemplateDraftHistoryModel, error) {
	var history []models.TemplateDraftHistoryModel
	err := s.db.WithContext(ctx).Where("draft_id = ?", id).Order("version DESC").Find(&history).Error
	return history, err
}

// Restore brings back the fields and name saved at version. The current
// content is snapshotted first, so a restore can itself be undone.
func (s *Service) Restore(ctx context.Context, id string, version int) (*models.TemplateDraftModel, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var snap models.TemplateDraftHistoryModel
	if err := s.db.WithContext(ctx).Where("draft_id = ? AND version = ?", d.ID, version).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("version %d: %w", version, ErrNotFound)
		}
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snapshot(d)).Error; err != nil {
			return err
		}
		d.Name = snap.Name
		d.Fields = fields.Renumber(snap.Fields)
		d.Version++
		return tx.Omit(clause.Associations).Save(d).Error
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("draft_id = ?", id).Delete(&models.TemplateDraftHistoryModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.TemplateDraftModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Session opens the draft in an editing session.
func (s *Service) Session(d *models.TemplateDraftModel) *editor.Session {
	return editor.NewSession(ToTemplate(d), s.log)
}

// ToTemplate converts a stored draft into the template shape the editor and
// the forms API use.
func ToTemplate(d *models.TemplateDraftModel) models.Template {
	tpl := models.Template{
		ProfessionKey: d.ProfessionKey,
		Name:          d.Name,
		Description:   d.Description,
		Status:        d.Status,
		Locale:        d.Locale,
		EmailSubject:  d.EmailSubject,
		EmailBody:     d.EmailBody,
		Schema:        d.Schema,
		Fields:        fields.Renumber(d.Fields),
	}
	if d.TemplateID != nil {
		tpl.ID = models.RecordID(*d.TemplateID)
	}
	return tpl
}

func applyTemplate(d *models.TemplateDraftModel, tpl models.Template) {
	d.ProfessionKey = tpl.ProfessionKey
	d.Name = tpl.Name
	d.Description = tpl.Description
	d.Status = tpl.Status
	if d.Status == "" {
		d.Status = models.TemplateDraft
	}
	d.Locale = tpl.LocaleOrDefault()
	d.EmailSubject = tpl.EmailSubject
	d.EmailBody = tpl.EmailBody
	d.Schema = tpl.Schema
	d.Fields = fields.Renumber(tpl.Fields)
}

func snapshot(d *models.TemplateDraftModel) *models.TemplateDraftHistoryModel {
	return &models.TemplateDraftHistoryModel{
		DraftID: d.ID,
		Version: d.Version,
		Name:    d.Name,
		Fields:  d.Fields,
		SavedAt: time.Now(),
	}
}
