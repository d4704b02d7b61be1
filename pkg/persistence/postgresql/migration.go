package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: migrationV1,
	}
}

const migrationV1 = `
	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		trigger_type TEXT NOT NULL,
		trigger_config JSONB NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_workflows_site_trigger
		ON workflows (site_id, trigger_type)
		WHERE active AND deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS workflow_steps (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		action_type TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		configuration JSONB NOT NULL DEFAULT '{}',
		stop_on_error BOOLEAN
	);

	CREATE INDEX IF NOT EXISTS idx_workflow_steps_workflow
		ON workflow_steps (workflow_id, position);

	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		trigger_data JSONB,
		status TEXT NOT NULL,
		results JSONB,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_executions_workflow
		ON executions (workflow_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS step_logs (
		id TEXT PRIMARY KEY,
		execution_id TEXT NOT NULL REFERENCES executions (id) ON DELETE CASCADE,
		step_id TEXT NOT NULL,
		status TEXT NOT NULL,
		output JSONB,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_step_logs_execution
		ON step_logs (execution_id, started_at);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		collection TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		tags JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		PRIMARY KEY (site_id, collection, id)
	);

	CREATE TABLE IF NOT EXISTS role_assignments (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (site_id, user_id, role)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		assignee TEXT NOT NULL DEFAULT '',
		due_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
`
