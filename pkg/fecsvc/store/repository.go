package store

import (
	"time"

	"gorm.io/gorm"
)

// JobRepository handles job persistence operations.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create adds a new job record.
func (r *JobRepository) Create(j *Job) error {
	return r.db.Create(j).Error
}

// MarkRunning transitions a job to running.
func (r *JobRepository) MarkRunning(id uint) error {
	return r.db.Model(&Job{}).Where("id = ?", id).Update("status", JobRunning).Error
}

// MarkDone records a completed job's output.
func (r *JobRepository) MarkDone(id uint, outputBits string, numErrs uint64) error {
	return r.db.Model(&Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       JobDone,
		"output_bits":  outputBits,
		"num_errs":     numErrs,
		"completed_at": time.Now(),
	}).Error
}

// MarkFailed records a job failure.
func (r *JobRepository) MarkFailed(id uint, errMsg string) error {
	return r.db.Model(&Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       JobFailed,
		"error":        errMsg,
		"completed_at": time.Now(),
	}).Error
}

// Get retrieves a single job by ID.
func (r *JobRepository) Get(id uint) (*Job, error) {
	var j Job
	err := r.db.First(&j, id).Error
	return &j, err
}

// GetRecent retrieves the most recent N jobs.
func (r *JobRepository) GetRecent(limit int) ([]Job, error) {
	var jobs []Job
	err := r.db.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// GetRecentPaginated retrieves jobs with pagination.
func (r *JobRepository) GetRecentPaginated(page, perPage int) ([]Job, int64, error) {
	var jobs []Job
	var total int64

	if err := r.db.Model(&Job{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := r.db.Order("created_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&jobs).Error

	return jobs, total, err
}

// GetByStatus retrieves jobs with a given status.
func (r *JobRepository) GetByStatus(status JobStatus, limit int) ([]Job, error) {
	var jobs []Job
	err := r.db.Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
