package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contactModel struct {
	ID        string `gorm:"primaryKey;type:text"`
	Name      string `gorm:"type:text;not null;default:''"`
	PushName  string `gorm:"type:text;not null;default:''"`
	Number    string `gorm:"type:text;not null;default:''"`
	UpdatedAt time.Time
}

func (contactModel) TableName() string { return "contacts" }

// messageModel keeps created_at under a custom field name so GORM never fills
// it in; a missing created_at is meaningful to the summary cascade.
type messageModel struct {
	RecordID  string        `gorm:"primaryKey;column:record_id;type:text"`
	MessageID string        `gorm:"column:message_id;type:text;not null;default:'';index"`
	FromJID   string        `gorm:"column:from_jid;type:text;not null;default:''"`
	ToJID     string        `gorm:"column:to_jid;type:text;not null;default:'';index"`
	Body      string        `gorm:"type:text;not null;default:''"`
	Caption   string        `gorm:"type:text;not null;default:''"`
	Type      string        `gorm:"column:msg_type;type:text;not null;default:''"`
	TS        *time.Time    `gorm:"column:ts;index"`
	Created   *time.Time    `gorm:"column:created_at;index"`
	IsGroup   *bool         `gorm:"column:is_group"`
	GroupID   string        `gorm:"column:group_id;type:text;not null;default:'';index"`
	GroupName string        `gorm:"column:group_name;type:text;not null;default:''"`
	Source    string        `gorm:"type:text;not null;default:''"`
	ContactID *string       `gorm:"column:contact_id;type:text"`
	Contact   *contactModel `gorm:"foreignKey:ContactID;references:ID"`
}

func (messageModel) TableName() string { return "messages" }

type gormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) (MessageRepository, error) {
	repo := &gormMessageRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *gormMessageRepo) ensureSchema() error {
	if err := r.db.AutoMigrate(&contactModel{}, &messageModel{}); err != nil {
		return fmt.Errorf("migrate messages: %w", err)
	}
	return nil
}

// findQuery scopes tx to the rows q selects, newest first.
func findQuery(tx *gorm.DB, q MessageQuery) (*gorm.DB, error) {
	where, args, err := compileSQL(q.Where, postgresDialect)
	if err != nil {
		return nil, err
	}
	tx = tx.Preload("Contact").
		Where(where, args...).
		Order(postgresDialect.orderExpr()).
		Order("record_id DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx, nil
}

// upsertMessage replaces every column of an existing row with the same record id.
func upsertMessage(tx *gorm.DB, model *messageModel) *gorm.DB {
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model)
}

func (r *gormMessageRepo) Find(ctx context.Context, q MessageQuery) ([]message.StoredMessage, error) {
	tx, err := findQuery(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}
	var rows []messageModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	out := make([]message.StoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *gormMessageRepo) Save(ctx context.Context, msg *message.StoredMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if strings.TrimSpace(msg.RecordID) == "" {
		msg.RecordID = uuid.NewString()
	}
	model := messageFromDomain(*msg)
	if err := upsertMessage(r.db.WithContext(ctx), &model).Error; err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *gormMessageRepo) SaveContact(ctx context.Context, c *message.Contact) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return ErrInvalidMessage
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing contactModel
		err := tx.Where("id = ?", c.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&contactModel{ID: c.ID, Name: c.Name, PushName: c.PushName, Number: c.Number}).Error
		case err != nil:
			return err
		}
		merged := mergeContact(existing.toDomain(), *c)
		existing.Name, existing.PushName, existing.Number = merged.Name, merged.PushName, merged.Number
		return tx.Save(&existing).Error
	})
}

func (c contactModel) toDomain() message.Contact {
	return message.Contact{ID: c.ID, Name: c.Name, PushName: c.PushName, Number: c.Number}
}

func (m messageModel) toDomain() message.StoredMessage {
	out := message.StoredMessage{
		RecordID:  m.RecordID,
		MessageID: m.MessageID,
		From:      m.FromJID,
		To:        m.ToJID,
		Body:      m.Body,
		Caption:   m.Caption,
		Type:      m.Type,
		Timestamp: m.TS,
		CreatedAt: m.Created,
		Metadata: message.Metadata{
			IsGroup:   m.IsGroup,
			GroupID:   m.GroupID,
			GroupName: m.GroupName,
		},
		Source:    m.Source,
		ContactID: m.ContactID,
	}
	if m.Contact != nil {
		c := m.Contact.toDomain()
		out.Contact = &c
	}
	return out
}

func messageFromDomain(m message.StoredMessage) messageModel {
	return messageModel{
		RecordID:  m.RecordID,
		MessageID: m.MessageID,
		FromJID:   m.From,
		ToJID:     m.To,
		Body:      m.Body,
		Caption:   m.Caption,
		Type:      m.Type,
		TS:        utcPtr(m.Timestamp),
		Created:   utcPtr(m.CreatedAt),
		IsGroup:   m.Metadata.IsGroup,
		GroupID:   m.Metadata.GroupID,
		GroupName: m.Metadata.GroupName,
		Source:    m.Source,
		ContactID: m.ContactID,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return timePtr(t.UTC())
}
