package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// AssistantRepository provides persistence for the two assistant pools
// and their course capabilities.
type AssistantRepository struct {
	db *sqlx.DB
}

// NewAssistantRepository creates a new assistant repository.
func NewAssistantRepository(db *sqlx.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

// FindHelpDesk loads one help-desk assistant.
func (r *AssistantRepository) FindHelpDesk(ctx context.Context, username string) (*models.HelpDeskAssistant, error) {
	const query = `SELECT username, hourly_rate, active, hours_worked, hours_minimum FROM help_desk_assistants WHERE username = $1 LIMIT 1`
	var assistant models.HelpDeskAssistant
	if err := r.db.GetContext(ctx, &assistant, query, username); err != nil {
		return nil, err
	}
	return &assistant, nil
}

// FindLab loads one lab assistant.
func (r *AssistantRepository) FindLab(ctx context.Context, username string) (*models.LabAssistant, error) {
	const query = `SELECT username, active, experienced FROM lab_assistants WHERE username = $1 LIMIT 1`
	var assistant models.LabAssistant
	if err := r.db.GetContext(ctx, &assistant, query, username); err != nil {
		return nil, err
	}
	return &assistant, nil
}

// IsActive reports whether the staff member is active in the given pool.
func (r *AssistantRepository) IsActive(ctx context.Context, kind models.StaffKind, username string) (bool, error) {
	table := "help_desk_assistants"
	if kind == models.StaffLab {
		table = "lab_assistants"
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE username = $1 AND active = TRUE`, table)
	var count int
	if err := r.db.GetContext(ctx, &count, query, username); err != nil {
		return false, fmt.Errorf("check active assistant: %w", err)
	}
	return count > 0, nil
}

// ListActive returns active usernames of a pool. For the help-desk pool
// only assistants with at least one course capability are eligible.
func (r *AssistantRepository) ListActive(ctx context.Context, kind models.StaffKind) ([]string, error) {
	var query string
	if kind == models.StaffLab {
		query = `SELECT username FROM lab_assistants WHERE active = TRUE ORDER BY username`
	} else {
		query = `SELECT a.username FROM help_desk_assistants a WHERE a.active = TRUE AND EXISTS (SELECT 1 FROM course_capabilities c WHERE c.username = a.username) ORDER BY a.username`
	}
	var usernames []string
	if err := r.db.SelectContext(ctx, &usernames, query); err != nil {
		return nil, fmt.Errorf("list active assistants: %w", err)
	}
	return usernames, nil
}

// CreateHelpDesk stores a help-desk assistant row.
func (r *AssistantRepository) CreateHelpDesk(ctx context.Context, exec sqlx.ExtContext, assistant *models.HelpDeskAssistant) error {
	const query = `INSERT INTO help_desk_assistants (username, hourly_rate, active, hours_worked, hours_minimum) VALUES (:username, :hourly_rate, :active, :hours_worked, :hours_minimum)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assistant); err != nil {
		return fmt.Errorf("create help-desk assistant: %w", err)
	}
	return nil
}

// AddHoursWorked moves the hours ledger by delta within a transaction.
func (r *AssistantRepository) AddHoursWorked(ctx context.Context, exec sqlx.ExtContext, username string, delta float64) error {
	const query = `UPDATE help_desk_assistants SET hours_worked = hours_worked + $2 WHERE username = $1`
	if _, err := exec.ExecContext(ctx, query, username, delta); err != nil {
		return fmt.Errorf("update hours worked: %w", err)
	}
	return nil
}

// HoursMinimums returns the weekly shift floor per active assistant.
func (r *AssistantRepository) HoursMinimums(ctx context.Context, kind models.StaffKind) (map[string]int, error) {
	result := make(map[string]int)
	if kind == models.StaffLab {
		// Lab assistants carry no per-staff floor.
		return result, nil
	}
	const query = `SELECT username, hours_minimum FROM help_desk_assistants WHERE active = TRUE`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select hours minimums: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var username string
		var minimum int
		if err := rows.Scan(&username, &minimum); err != nil {
			return nil, fmt.Errorf("scan hours minimum: %w", err)
		}
		result[username] = minimum
	}
	return result, rows.Err()
}

// Capabilities returns course codes per assistant for a set of staff.
func (r *AssistantRepository) Capabilities(ctx context.Context, usernames []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(usernames) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT username, course_code FROM course_capabilities WHERE username IN (?)`, usernames)
	if err != nil {
		return nil, fmt.Errorf("build capabilities query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.CourseCapability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select capabilities: %w", err)
	}
	for _, row := range rows {
		result[row.Username] = append(result[row.Username], row.CourseCode)
	}
	return result, nil
}

// AddCapability registers an (assistant, course) pair.
func (r *AssistantRepository) AddCapability(ctx context.Context, exec sqlx.ExtContext, username, courseCode string) error {
	const query = `INSERT INTO course_capabilities (username, course_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, username, courseCode); err != nil {
		return fmt.Errorf("add capability: %w", err)
	}
	return nil
}
