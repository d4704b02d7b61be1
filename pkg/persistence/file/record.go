package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

// RecordRepository stores site records as
// records/<site>/<collection>/<id>.json, plus flat directories for role
// assignments, tasks and notifications.
type RecordRepository struct {
	root string
}

func NewRecordRepository(root string) *RecordRepository {
	return &RecordRepository{root: root}
}

func (rr *RecordRepository) CreateRecord(_ context.Context, record *models.Record) error {
	return rr.writeRecord(record)
}

func (rr *RecordRepository) UpdateRecord(ctx context.Context, record *models.Record) error {
	_, err := rr.RecordByID(ctx, record.SiteID, record.Collection, record.ID)
	if err != nil {
		return err
	}

	return rr.writeRecord(record)
}

func (rr *RecordRepository) DeleteRecord(_ context.Context, siteID, collection, id string) error {
	err := os.Remove(rr.recordPath(siteID, collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s/%s", persistence.ErrRecordNotFound, siteID, collection, id)
		}

		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return nil
}

func (rr *RecordRepository) RecordByID(_ context.Context, siteID, collection, id string) (*models.Record, error) {
	body, err := os.ReadFile(filepath.Clean(rr.recordPath(siteID, collection, id)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s/%s", persistence.ErrRecordNotFound, siteID, collection, id)
		}

		return nil, fmt.Errorf("failed to fetch record %s: %w", id, err)
	}

	var record models.Record

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}

	return &record, nil
}

func (rr *RecordRepository) Tags(ctx context.Context, siteID, collection, recordID string) ([]string, error) {
	record, err := rr.RecordByID(ctx, siteID, collection, recordID)
	if err != nil {
		return nil, err
	}

	return record.Tags, nil
}

func (rr *RecordRepository) SetTags(ctx context.Context, siteID, collection, recordID string, tags []string) error {
	record, err := rr.RecordByID(ctx, siteID, collection, recordID)
	if err != nil {
		return err
	}

	record.Tags = tags
	record.UpdatedAt = time.Now().UTC()

	return rr.writeRecord(record)
}

func (rr *RecordRepository) RoleAssignmentExists(_ context.Context, siteID, userID, role string) (bool, error) {
	assignments, err := rr.loadRoleAssignments()
	if err != nil {
		return false, err
	}

	for _, assignment := range assignments {
		if assignment.SiteID == siteID && assignment.UserID == userID && assignment.Role == role {
			return true, nil
		}
	}

	return false, nil
}

func (rr *RecordRepository) CreateRoleAssignment(_ context.Context, assignment *models.RoleAssignment) error {
	return rr.writeJSON(path.Join("roles", assignment.ID+".json"), assignment)
}

func (rr *RecordRepository) CreateTask(_ context.Context, task *models.Task) error {
	return rr.writeJSON(path.Join("tasks", task.ID+".json"), task)
}

func (rr *RecordRepository) CreateNotification(_ context.Context, notification *models.Notification) error {
	return rr.writeJSON(path.Join("notifications", notification.ID+".json"), notification)
}

func (rr *RecordRepository) recordPath(siteID, collection, id string) string {
	return path.Join(rr.root, "records", siteID, collection, id+".json")
}

func (rr *RecordRepository) writeRecord(record *models.Record) error {
	relative := path.Join("records", record.SiteID, record.Collection, record.ID+".json")

	return rr.writeJSON(relative, record)
}

func (rr *RecordRepository) writeJSON(relative string, value any) error {
	filePath := path.Join(rr.root, relative)

	err := os.MkdirAll(path.Dir(filePath), 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", relative, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", relative, err)
	}

	return os.WriteFile(filePath, data, 0600)
}

func (rr *RecordRepository) loadRoleAssignments() ([]*models.RoleAssignment, error) {
	root := os.DirFS(path.Join(rr.root, "roles"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list role assignments: %w", err)
	}

	assignments := make([]*models.RoleAssignment, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		body, err := os.ReadFile(filepath.Clean(path.Join(rr.root, "roles", file)))
		if err != nil {
			return nil, fmt.Errorf("failed to read role assignment %s: %w", file, err)
		}

		var assignment models.RoleAssignment

		err = json.Unmarshal(body, &assignment)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal role assignment %s: %w", file, err)
		}

		assignments = append(assignments, &assignment)
	}

	return assignments, nil
}
