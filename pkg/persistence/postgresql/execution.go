package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

// ExecutionRepository handles execution and step log rows.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerDataJSON, resultsJSON, err := marshalExecutionJSON(execution)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, site_id, trigger_type, trigger_data,
			status, results, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		execution.ID,
		execution.WorkflowID,
		execution.SiteID,
		string(execution.TriggerType),
		triggerDataJSON,
		string(execution.Status),
		resultsJSON,
		execution.Error,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerDataJSON, resultsJSON, err := marshalExecutionJSON(execution)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE executions
		SET trigger_data = $2, status = $3, results = $4, error = $5, completed_at = $6
		WHERE id = $1
	`,
		execution.ID,
		triggerDataJSON,
		string(execution.Status),
		resultsJSON,
		execution.Error,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrExecutionNotFound, execution.ID)
	}

	return nil
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, site_id, trigger_type, trigger_data,
			status, results, error, started_at, completed_at
		FROM executions
		WHERE id = $1
	`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrExecutionNotFound, id)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, site_id, trigger_type, trigger_data,
			status, results, error, started_at, completed_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

func (r *ExecutionRepository) CreateStepLog(ctx context.Context, stepLog *models.StepLog) error {
	outputJSON, err := json.Marshal(stepLog.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal step log output: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO step_logs (id, execution_id, step_id, status, output, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		stepLog.ID,
		stepLog.ExecutionID,
		stepLog.StepID,
		string(stepLog.Status),
		outputJSON,
		stepLog.Error,
		stepLog.StartedAt,
		stepLog.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create step log: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateStepLog(ctx context.Context, stepLog *models.StepLog) error {
	outputJSON, err := json.Marshal(stepLog.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal step log output: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE step_logs
		SET status = $2, output = $3, error = $4, completed_at = $5
		WHERE id = $1
	`,
		stepLog.ID,
		string(stepLog.Status),
		outputJSON,
		stepLog.Error,
		stepLog.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update step log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrStepLogNotFound, stepLog.ID)
	}

	return nil
}

func (r *ExecutionRepository) StepLogsByExecution(ctx context.Context, executionID string) ([]*models.StepLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, step_id, status, output, error, started_at, completed_at
		FROM step_logs
		WHERE execution_id = $1
		ORDER BY started_at
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step logs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	logs := make([]*models.StepLog, 0)

	for rows.Next() {
		var (
			stepLog    models.StepLog
			status     string
			outputJSON []byte
		)

		err = rows.Scan(
			&stepLog.ID,
			&stepLog.ExecutionID,
			&stepLog.StepID,
			&status,
			&outputJSON,
			&stepLog.Error,
			&stepLog.StartedAt,
			&stepLog.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step log: %w", err)
		}

		stepLog.Status = models.StepStatus(status)

		if len(outputJSON) > 0 {
			err = json.Unmarshal(outputJSON, &stepLog.Output)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal step log output: %w", err)
			}
		}

		logs = append(logs, &stepLog)
	}

	return logs, rows.Err()
}

func marshalExecutionJSON(execution *models.WorkflowExecution) ([]byte, []byte, error) {
	triggerDataJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	resultsJSON, err := json.Marshal(execution.Results)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal results: %w", err)
	}

	return triggerDataJSON, resultsJSON, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution       models.WorkflowExecution
		triggerType     string
		status          string
		triggerDataJSON []byte
		resultsJSON     []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.SiteID,
		&triggerType,
		&triggerDataJSON,
		&status,
		&resultsJSON,
		&execution.Error,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.TriggerType = models.TriggerType(triggerType)
	execution.Status = models.ExecutionStatus(status)

	if len(triggerDataJSON) > 0 {
		err = json.Unmarshal(triggerDataJSON, &execution.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if len(resultsJSON) > 0 {
		err = json.Unmarshal(resultsJSON, &execution.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	return &execution, nil
}
