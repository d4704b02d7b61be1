package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
)

// ExecutionRepository stores executions as executions/<id>.json and step
// logs as step_logs/<id>.json.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	return er.writeExecution(execution)
}

func (er *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	existing, err := er.ExecutionByID(ctx, execution.ID)
	if err != nil {
		return err
	}

	execution.StartedAt = existing.StartedAt

	return er.writeExecution(execution)
}

func (er *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	filePath := filepath.Clean(path.Join(er.root, "executions", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrExecutionNotFound, id)
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(body, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(path.Join(er.root, "executions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0)

	for _, file := range jsonFiles {
		execution, err := er.ExecutionByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (er *ExecutionRepository) CreateStepLog(_ context.Context, stepLog *models.StepLog) error {
	return er.writeStepLog(stepLog)
}

func (er *ExecutionRepository) UpdateStepLog(_ context.Context, stepLog *models.StepLog) error {
	filePath := path.Join(er.root, "step_logs", stepLog.ID+".json")
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", persistence.ErrStepLogNotFound, stepLog.ID)
	}

	return er.writeStepLog(stepLog)
}

func (er *ExecutionRepository) StepLogsByExecution(_ context.Context, executionID string) ([]*models.StepLog, error) {
	root := os.DirFS(path.Join(er.root, "step_logs"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list step log files: %w", err)
	}

	logs := make([]*models.StepLog, 0)

	for _, file := range jsonFiles {
		body, err := os.ReadFile(filepath.Clean(path.Join(er.root, "step_logs", file)))
		if err != nil {
			return nil, fmt.Errorf("failed to read step log %s: %w", file, err)
		}

		var stepLog models.StepLog

		err = json.Unmarshal(body, &stepLog)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal step log %s: %w", file, err)
		}

		if stepLog.ExecutionID == executionID {
			logs = append(logs, &stepLog)
		}
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.Before(logs[j].StartedAt)
	})

	return logs, nil
}

func (er *ExecutionRepository) writeExecution(execution *models.WorkflowExecution) error {
	err := os.MkdirAll(path.Join(er.root, "executions"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	return os.WriteFile(path.Join(er.root, "executions", execution.ID+".json"), data, 0600)
}

func (er *ExecutionRepository) writeStepLog(stepLog *models.StepLog) error {
	err := os.MkdirAll(path.Join(er.root, "step_logs"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create step_logs directory: %w", err)
	}

	data, err := json.MarshalIndent(stepLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal step log %s: %w", stepLog.ID, err)
	}

	return os.WriteFile(path.Join(er.root, "step_logs", stepLog.ID+".json"), data, 0600)
}
