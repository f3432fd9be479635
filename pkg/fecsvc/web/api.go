package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dbehnke/convcode/pkg/fecsvc/config"
	"github.com/dbehnke/convcode/pkg/fecsvc/jobrunner"
	"github.com/dbehnke/convcode/pkg/fecsvc/store"
	"github.com/dbehnke/convcode/pkg/logger"
)

// API handles the REST surface for job submission and inspection.
type API struct {
	logger *logger.Logger
	runner *jobrunner.Runner
	repo   *store.JobRepository
	jobCfg config.JobConfig
}

// NewAPI creates a new API instance.
func NewAPI(log *logger.Logger, runner *jobrunner.Runner, repo *store.JobRepository, jobCfg config.JobConfig) *API {
	return &API{
		logger: log,
		runner: runner,
		repo:   repo,
		jobCfg: jobCfg,
	}
}

// JobRequest is the request body for POST /api/jobs.
type JobRequest struct {
	Kind        string   `json:"kind"` // "encode" or "decode"
	K           int      `json:"k,omitempty"`
	Polynomials []string `json:"polynomials,omitempty"`
	Recursive   *bool    `json:"recursive,omitempty"`
	Tail        *bool    `json:"tail,omitempty"`
	Bits        string   `json:"bits"`
}

// JobDTO is the JSON response shape for a job.
type JobDTO struct {
	ID          uint   `json:"id"`
	Kind        string `json:"kind"`
	K           int    `json:"k"`
	Polynomials string `json:"polynomials"`
	Status      string `json:"status"`
	InputBits   string `json:"input_bits"`
	OutputBits  string `json:"output_bits,omitempty"`
	NumErrs     uint64 `json:"num_errs,omitempty"`
	Error       string `json:"error,omitempty"`
}

func jobToDTO(j *store.Job) JobDTO {
	return JobDTO{
		ID:          j.ID,
		Kind:        string(j.Kind),
		K:           j.K,
		Polynomials: j.Polynomials,
		Status:      string(j.Status),
		InputBits:   j.InputBits,
		OutputBits:  j.OutputBits,
		NumErrs:     j.NumErrs,
		Error:       j.Error,
	}
}

// HandleHealth handles GET /health.
func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "fecd",
	}); err != nil {
		a.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}

// HandleJobs handles GET (list) and POST (submit) on /api/jobs.
func (a *API) HandleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listJobs(w, r)
	case http.MethodPost:
		a.submitJob(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listJobsResponse wraps a page of jobs with pagination metadata.
type listJobsResponse struct {
	Jobs    []JobDTO `json:"jobs"`
	Total   int64    `json:"total,omitempty"`
	Page    int      `json:"page,omitempty"`
	PerPage int      `json:"per_page,omitempty"`
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	var jobs []store.Job
	var total int64
	var err error

	if page > 0 {
		if perPage <= 0 {
			perPage = 20
		}
		jobs, total, err = a.repo.GetRecentPaginated(page, perPage)
	} else {
		jobs, err = a.repo.GetRecent(50)
	}
	if err != nil {
		a.logger.Error("Failed to list jobs", logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	dtos := make([]JobDTO, len(jobs))
	for i := range jobs {
		dtos[i] = jobToDTO(&jobs[i])
	}

	resp := listJobsResponse{Jobs: dtos, Total: total, Page: page, PerPage: perPage}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Error("Failed to encode job list", logger.Error(err))
	}
}

func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	kind := store.JobKind(strings.ToLower(req.Kind))
	if kind != store.JobEncode && kind != store.JobDecode {
		http.Error(w, "kind must be \"encode\" or \"decode\"", http.StatusBadRequest)
		return
	}
	for _, c := range req.Bits {
		if c != '0' && c != '1' {
			http.Error(w, "bits must contain only 0/1", http.StatusBadRequest)
			return
		}
	}

	k := a.jobCfg.K
	if req.K != 0 {
		k = req.K
	}
	polyTokens := a.jobCfg.Polynomials
	if len(req.Polynomials) > 0 {
		polyTokens = req.Polynomials
	}
	recursive := a.jobCfg.Recursive
	if req.Recursive != nil {
		recursive = *req.Recursive
	}
	tail := a.jobCfg.Tail
	if req.Tail != nil {
		tail = *req.Tail
	}

	job := &store.Job{
		Kind:        kind,
		K:           k,
		Polynomials: store.JoinPolynomials(polyTokens),
		Recursive:   recursive,
		Tail:        tail,
		InputBits:   req.Bits,
	}
	if err := a.repo.Create(job); err != nil {
		a.logger.Error("Failed to create job", logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	a.runner.Submit(job.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(jobToDTO(job)); err != nil {
		a.logger.Error("Failed to encode submitted job", logger.Error(err))
	}
}

// HandleJob handles GET /api/jobs/{id}.
func (a *API) HandleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	job, err := a.repo.Get(uint(id))
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(jobToDTO(job)); err != nil {
		a.logger.Error("Failed to encode job", logger.Error(err))
	}
}
