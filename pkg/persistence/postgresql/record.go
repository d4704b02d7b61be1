package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

// RecordRepository handles the site record store plus the role, task and
// notification rows workflow actions write.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

func (r *RecordRepository) CreateRecord(ctx context.Context, record *models.Record) error {
	dataJSON, tagsJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, site_id, collection, data, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.ID,
		record.SiteID,
		record.Collection,
		dataJSON,
		tagsJSON,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

func (r *RecordRepository) UpdateRecord(ctx context.Context, record *models.Record) error {
	dataJSON, tagsJSON, err := marshalRecordJSON(record)
	if err != nil {
		return err
	}

	record.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET data = $4, tags = $5, updated_at = $6
		WHERE site_id = $1 AND collection = $2 AND id = $3
	`,
		record.SiteID,
		record.Collection,
		record.ID,
		dataJSON,
		tagsJSON,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	return requireAffected(result, persistence.ErrRecordNotFound, record.ID)
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, siteID, collection, id string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM records WHERE site_id = $1 AND collection = $2 AND id = $3
	`, siteID, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return requireAffected(result, persistence.ErrRecordNotFound, id)
}

func (r *RecordRepository) RecordByID(ctx context.Context, siteID, collection, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, site_id, collection, data, tags, created_at, updated_at
		FROM records
		WHERE site_id = $1 AND collection = $2 AND id = $3
	`, siteID, collection, id)

	var (
		record   models.Record
		dataJSON []byte
		tagsJSON []byte
	)

	err := row.Scan(
		&record.ID,
		&record.SiteID,
		&record.Collection,
		&dataJSON,
		&tagsJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s/%s", persistence.ErrRecordNotFound, siteID, collection, id)
		}

		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if len(dataJSON) > 0 {
		err = json.Unmarshal(dataJSON, &record.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
		}
	}

	if len(tagsJSON) > 0 {
		err = json.Unmarshal(tagsJSON, &record.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal record tags: %w", err)
		}
	}

	return &record, nil
}

func (r *RecordRepository) Tags(ctx context.Context, siteID, collection, recordID string) ([]string, error) {
	record, err := r.RecordByID(ctx, siteID, collection, recordID)
	if err != nil {
		return nil, err
	}

	return record.Tags, nil
}

func (r *RecordRepository) SetTags(ctx context.Context, siteID, collection, recordID string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET tags = $4, updated_at = NOW()
		WHERE site_id = $1 AND collection = $2 AND id = $3
	`, siteID, collection, recordID, tagsJSON)
	if err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}

	return requireAffected(result, persistence.ErrRecordNotFound, recordID)
}

func (r *RecordRepository) RoleAssignmentExists(ctx context.Context, siteID, userID, role string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM role_assignments WHERE site_id = $1 AND user_id = $2 AND role = $3
		)
	`, siteID, userID, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role assignment: %w", err)
	}

	return exists, nil
}

func (r *RecordRepository) CreateRoleAssignment(ctx context.Context, assignment *models.RoleAssignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_assignments (id, site_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (site_id, user_id, role) DO NOTHING
	`,
		assignment.ID,
		assignment.SiteID,
		assignment.UserID,
		assignment.Role,
		assignment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create role assignment: %w", err)
	}

	return nil
}

func (r *RecordRepository) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, site_id, title, description, assignee, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		task.ID,
		task.SiteID,
		task.Title,
		task.Description,
		task.Assignee,
		task.DueAt,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (r *RecordRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, site_id, user_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		notification.ID,
		notification.SiteID,
		notification.UserID,
		notification.Title,
		notification.Body,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func marshalRecordJSON(record *models.Record) ([]byte, []byte, error) {
	dataJSON, err := json.Marshal(record.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal record data: %w", err)
	}

	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal record tags: %w", err)
	}

	return dataJSON, tagsJSON, nil
}

func requireAffected(result sql.Result, sentinel error, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", sentinel, id)
	}

	return nil
}
