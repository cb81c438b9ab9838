package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
)

const projectColumns = `id, sequence, user_id, name, audio_type, video_format, background_color, media, stanzas, created_at, updated_at, deleted_at`

// ProjectRepository implements models.Repository[*models.Project] for editor projects.
//
// Media paths and stanzas are stored as JSON columns; a project is always read and written whole.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository with the given database connection
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project with generated ID and sequence
func (r *ProjectRepository) Create(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "projects")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	project.SetSequence(sequence)
	project.Touch(shared.GenerateID(), time.Now())

	media, stanzas, err := encodeProject(project)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, sequence, user_id, name, audio_type, video_format, background_color, media, stanzas, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		project.ID(),
		project.Sequence(),
		project.UserID,
		project.Name,
		string(project.AudioType),
		project.VideoFormat,
		project.BackgroundColor,
		media,
		stanzas,
		project.CreatedAt(),
		project.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID, excluding soft-deleted projects
func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ? AND deleted_at IS NULL`

	project, err := scanProject(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrProjectNotFound, id)
	}
	return project, err
}

// GetBySequence resolves the short numeric handle shown in CLI listings.
func (r *ProjectRepository) GetBySequence(sequence int) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE sequence = ? AND deleted_at IS NULL`

	project, err := scanProject(r.db.QueryRow(query, sequence))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: #%d", shared.ErrProjectNotFound, sequence)
	}
	return project, err
}

// Update modifies an existing project in the database
func (r *ProjectRepository) Update(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	project.SetUpdatedAt(now)

	media, stanzas, err := encodeProject(project)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET name = ?, audio_type = ?, video_format = ?, background_color = ?, media = ?, stanzas = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		project.Name,
		string(project.AudioType),
		project.VideoFormat,
		project.BackgroundColor,
		media,
		stanzas,
		now,
		project.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return affectedOne(result, project.ID())
}

// Delete soft-deletes a project by ID
func (r *ProjectRepository) Delete(id string) error {
	query := `UPDATE projects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return affectedOne(result, id)
}

// List retrieves all projects matching the given criteria, excluding soft-deleted projects.
//
// Supported criteria: "user_id" (string).
func (r *ProjectRepository) List(criteria map[string]any) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return projects, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*models.Project, error) {
	var (
		id, userID, name, audioType  string
		videoFormat, backgroundColor string
		media, stanzas               string
		sequence                     int
		createdAt, updatedAt         time.Time
		deletedAt                    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &name, &audioType, &videoFormat, &backgroundColor, &media, &stanzas, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	project := models.NewProject(sequence, userID, name)
	project.AudioType = models.AudioType(audioType)
	project.VideoFormat = videoFormat
	project.BackgroundColor = backgroundColor

	if err := json.Unmarshal([]byte(media), &project.Media); err != nil {
		return nil, fmt.Errorf("failed to decode media for project %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(stanzas), &project.Stanzas); err != nil {
		return nil, fmt.Errorf("failed to decode stanzas for project %s: %w", id, err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	project.Hydrate(id, sequence, createdAt, updatedAt, deleted)

	return project, nil
}

func encodeProject(project *models.Project) (string, string, error) {
	media, err := json.Marshal(project.Media)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode media: %w", err)
	}

	stanzas := project.Stanzas
	if stanzas == nil {
		stanzas = []models.Stanza{}
	}
	encoded, err := json.Marshal(stanzas)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode stanzas: %w", err)
	}

	return string(media), string(encoded), nil
}

func affectedOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s (or already deleted)", shared.ErrProjectNotFound, id)
	}
	return nil
}
