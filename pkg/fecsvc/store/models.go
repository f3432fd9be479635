package store

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// JobKind distinguishes an encode job from a decode job.
type JobKind string

const (
	JobEncode JobKind = "encode"
	JobDecode JobKind = "decode"
)

// JobStatus tracks a job's lifecycle.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job represents one encode or decode request processed by fecd, including
// the codec parameters it ran with and its result.
type Job struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Kind        JobKind   `gorm:"index;not null" json:"kind"`
	K           int       `gorm:"not null" json:"k"`
	Polynomials string    `gorm:"not null" json:"polynomials"` // comma-separated tokens, octal with a leading 0 or decimal
	Recursive   bool      `gorm:"not null" json:"recursive"`
	Tail        bool      `gorm:"not null" json:"tail"`
	InputBits   string    `gorm:"not null" json:"input_bits"`
	OutputBits  string    `json:"output_bits"`
	NumErrs     uint64    `json:"num_errs"`
	Status      JobStatus `gorm:"index;not null" json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `gorm:"index;not null" json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate ensures CreatedAt and Status default sanely.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	if j.Status == "" {
		j.Status = JobPending
	}
	return nil
}

// PolynomialList splits the stored comma-separated polynomial string back
// into individual tokens for ParsePolynomials.
func (j *Job) PolynomialList() []string {
	if j.Polynomials == "" {
		return nil
	}
	return strings.Split(j.Polynomials, ",")
}

// JoinPolynomials formats a polynomial token list for storage.
func JoinPolynomials(tokens []string) string {
	return strings.Join(tokens, ",")
}
