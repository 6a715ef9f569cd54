package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// sqliteMessageRow mirrors migrations/000001_messages.up.sql. Instants are
// unix milliseconds.
type sqliteMessageRow struct {
	RecordID  string         `db:"record_id"`
	MessageID string         `db:"message_id"`
	FromJID   string         `db:"from_jid"`
	ToJID     string         `db:"to_jid"`
	Body      string         `db:"body"`
	Caption   string         `db:"caption"`
	Type      string         `db:"msg_type"`
	TS        sql.NullInt64  `db:"ts"`
	CreatedAt sql.NullInt64  `db:"created_at"`
	IsGroup   sql.NullInt64  `db:"is_group"`
	GroupID   string         `db:"group_id"`
	GroupName string         `db:"group_name"`
	Source    string         `db:"source"`
	ContactID sql.NullString `db:"contact_id"`

	CID       sql.NullString `db:"c_id"`
	CName     sql.NullString `db:"c_name"`
	CPushName sql.NullString `db:"c_push_name"`
	CNumber   sql.NullString `db:"c_number"`
}

const sqliteSelectMessages = `
        SELECT m.record_id, m.message_id, m.from_jid, m.to_jid, m.body, m.caption, m.msg_type,
               m.ts, m.created_at, m.is_group, m.group_id, m.group_name, m.source, m.contact_id,
               c.id AS c_id, c.name AS c_name, c.push_name AS c_push_name, c.number AS c_number
        FROM messages m
        LEFT JOIN contacts c ON c.id = m.contact_id`

type sqliteMessageRepo struct {
	db *sqlx.DB
}

// NewSQLiteMessageRepo expects a database already migrated by
// database.OpenSQLite.
func NewSQLiteMessageRepo(db *sqlx.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Find(ctx context.Context, q MessageQuery) ([]message.StoredMessage, error) {
	where, args, err := compileSQL(q.Where, sqliteDialect)
	if err != nil {
		return nil, err
	}
	query := sqliteSelectMessages + " WHERE " + where +
		" ORDER BY " + sqliteDialect.orderExpr() + ", m.record_id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	var rows []sqliteMessageRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	out := make([]message.StoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *sqliteMessageRepo) Save(ctx context.Context, msg *message.StoredMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if strings.TrimSpace(msg.RecordID) == "" {
		msg.RecordID = uuid.NewString()
	}
	const query = `
        INSERT INTO messages (record_id, message_id, from_jid, to_jid, body, caption, msg_type,
                              ts, created_at, is_group, group_id, group_name, source, contact_id)
        VALUES (:record_id, :message_id, :from_jid, :to_jid, :body, :caption, :msg_type,
                :ts, :created_at, :is_group, :group_id, :group_name, :source, :contact_id)
        ON CONFLICT (record_id) DO UPDATE SET
            message_id = excluded.message_id,
            from_jid = excluded.from_jid,
            to_jid = excluded.to_jid,
            body = excluded.body,
            caption = excluded.caption,
            msg_type = excluded.msg_type,
            ts = excluded.ts,
            created_at = excluded.created_at,
            is_group = excluded.is_group,
            group_id = excluded.group_id,
            group_name = excluded.group_name,
            source = excluded.source,
            contact_id = excluded.contact_id`
	if _, err := r.db.NamedExecContext(ctx, query, sqliteRowFromDomain(*msg)); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) SaveContact(ctx context.Context, c *message.Contact) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return ErrInvalidMessage
	}
	const query = `
        INSERT INTO contacts (id, name, push_name, number, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE contacts.name END,
            push_name = CASE WHEN excluded.push_name <> '' THEN excluded.push_name ELSE contacts.push_name END,
            number = CASE WHEN excluded.number <> '' THEN excluded.number ELSE contacts.number END,
            updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.PushName, c.Number, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save contact: %w", err)
	}
	return nil
}

func (row sqliteMessageRow) toDomain() message.StoredMessage {
	out := message.StoredMessage{
		RecordID:  row.RecordID,
		MessageID: row.MessageID,
		From:      row.FromJID,
		To:        row.ToJID,
		Body:      row.Body,
		Caption:   row.Caption,
		Type:      row.Type,
		Timestamp: fromMillis(row.TS),
		CreatedAt: fromMillis(row.CreatedAt),
		Metadata: message.Metadata{
			GroupID:   row.GroupID,
			GroupName: row.GroupName,
		},
		Source: row.Source,
	}
	if row.IsGroup.Valid {
		out.Metadata.IsGroup = message.Bool(row.IsGroup.Int64 != 0)
	}
	if row.ContactID.Valid {
		id := row.ContactID.String
		out.ContactID = &id
	}
	if row.CID.Valid {
		out.Contact = &message.Contact{
			ID:       row.CID.String,
			Name:     row.CName.String,
			PushName: row.CPushName.String,
			Number:   row.CNumber.String,
		}
	}
	return out
}

func sqliteRowFromDomain(m message.StoredMessage) sqliteMessageRow {
	row := sqliteMessageRow{
		RecordID:  m.RecordID,
		MessageID: m.MessageID,
		FromJID:   m.From,
		ToJID:     m.To,
		Body:      m.Body,
		Caption:   m.Caption,
		Type:      m.Type,
		TS:        toMillis(m.Timestamp),
		CreatedAt: toMillis(m.CreatedAt),
		GroupID:   m.Metadata.GroupID,
		GroupName: m.Metadata.GroupName,
		Source:    m.Source,
	}
	if m.Metadata.IsGroup != nil {
		row.IsGroup = sql.NullInt64{Int64: sqliteDialect.boolArg(*m.Metadata.IsGroup).(int64), Valid: true}
	}
	if m.ContactID != nil {
		row.ContactID = sql.NullString{String: *m.ContactID, Valid: true}
	}
	return row
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	return timePtr(time.UnixMilli(v.Int64).UTC())
}
