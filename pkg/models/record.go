package models

import "time"

// Record is an arbitrary site-owned row in the record store (customers,
// orders, form entries, ...). The engine reads and writes records only
// through workflow actions.
type Record struct {
	ID         string         `json:"id"`
	SiteID     string         `json:"site_id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	Tags       []string       `json:"tags,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RoleAssignment grants a role to a user on a site.
type RoleAssignment struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a to-do item created by the create_task action.
type Task struct {
	ID          string     `json:"id"`
	SiteID      string     `json:"site_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification is an in-app message created by the send_notification action.
type Notification struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
