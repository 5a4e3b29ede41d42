// Package simulate advances department work on a timer. Each running
// department is a cron entry that adds a random increment per tick until the
// department reaches 100%, then completes it and records its deliverables.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/tracker"
)

// Defaults for Options.
const (
	DefaultTick         = time.Second
	DefaultMinIncrement = 5
	DefaultMaxIncrement = 20
)

// ErrCompleted indicates the department has already finished its work.
var ErrCompleted = errors.New("department already completed")

// Scheduler is the subset of *cron.Cron the runner needs.
type Scheduler interface {
	Schedule(schedule cron.Schedule, cmd cron.Job) cron.EntryID
	Remove(id cron.EntryID)
}

// Hooks receive simulation milestones. Any hook may be nil.
type Hooks struct {
	OnProgress func(projectID, departmentID string, percent int)
	// OnComplete receives the finished department and the artifacts it added.
	OnComplete func(projectID string, dept models.Department, artifacts []string)
}

// Options configures a Runner.
type Options struct {
	Tick         time.Duration
	MinIncrement int
	MaxIncrement int
	// Rand returns a value in [0, n). Defaults to math/rand/v2.IntN.
	Rand   func(n int) int
	Hooks  Hooks
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.MinIncrement <= 0 {
		o.MinIncrement = DefaultMinIncrement
	}
	if o.MaxIncrement < o.MinIncrement {
		o.MaxIncrement = o.MinIncrement
	}
	if o.Rand == nil {
		o.Rand = rand.IntN
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

type key struct {
	projectID    string
	departmentID string
}

type job struct {
	r       *Runner
	key     key
	tracker *tracker.Tracker
	entry   cron.EntryID

	mu   sync.Mutex
	done bool
}

// Runner owns every simulated work item.
type Runner struct {
	sched Scheduler
	cron  *cron.Cron // nil when the scheduler was injected
	opts  Options

	mu   sync.Mutex
	jobs map[key]*job
}

// New creates a Runner backed by its own cron scheduler. Call Start to begin
// ticking and Stop on shutdown.
func New(opts Options) *Runner {
	c := cron.New()
	r := NewWithScheduler(c, opts)
	r.cron = c
	return r
}

// NewWithScheduler creates a Runner on an existing scheduler.
func NewWithScheduler(s Scheduler, opts Options) *Runner {
	opts.applyDefaults()
	return &Runner{sched: s, opts: opts, jobs: make(map[key]*job)}
}

// Start starts the owned cron scheduler.
func (r *Runner) Start() {
	if r.cron != nil {
		r.cron.Start()
	}
}

// Stop cancels all work and stops the owned scheduler. The returned context
// is done once running ticks have returned.
func (r *Runner) Stop() context.Context {
	r.mu.Lock()
	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
	if r.cron != nil {
		return r.cron.Stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// Handle cancels one simulated work item.
type Handle struct {
	j *job
}

// Cancel stops the work item. Progress already recorded is kept. Safe to
// call more than once.
func (h *Handle) Cancel() {
	if h != nil && h.j != nil {
		h.j.cancel()
	}
}

// Begin marks the department in progress and starts ticking its progress.
// Beginning a department that is already running returns its existing handle.
func (r *Runner) Begin(projectID string, tr *tracker.Tracker, departmentID string) (*Handle, error) {
	dept, err := tr.Department(departmentID)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	switch dept.Status {
	case models.DepartmentDisabled:
		return nil, fmt.Errorf("simulate: %w: %s", tracker.ErrDisabled, departmentID)
	case models.DepartmentCompleted:
		return nil, fmt.Errorf("simulate: %w: %s", ErrCompleted, departmentID)
	}

	k := key{projectID: projectID, departmentID: departmentID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.jobs[k]; ok {
		if !existing.finished() {
			return &Handle{j: existing}, nil
		}
		// Finished but not yet forgotten; forget checks identity before deleting.
		delete(r.jobs, k)
	}

	start := 0
	if dept.CompletionPercentage != nil {
		start = min(max(*dept.CompletionPercentage, 0), 100)
	}
	if err := tr.SetStatus(departmentID, models.DepartmentInProgress); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if err := tr.SetProgress(departmentID, start); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	j := &job{r: r, key: k, tracker: tr}
	j.entry = r.sched.Schedule(cron.Every(r.opts.Tick), j)
	r.jobs[k] = j
	r.opts.Logger.Debug("simulated work started", "project", projectID, "department", departmentID)
	return &Handle{j: j}, nil
}

// CancelProject cancels every work item of a project.
func (r *Runner) CancelProject(projectID string) {
	r.mu.Lock()
	var jobs []*job
	for k, j := range r.jobs {
		if k.projectID == projectID {
			jobs = append(jobs, j)
		}
	}
	r.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
}

// Running reports whether a department has simulated work in flight.
func (r *Runner) Running(projectID, departmentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key{projectID: projectID, departmentID: departmentID}]
	return ok && !j.finished()
}

// Active returns the number of work items in flight.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if !j.finished() {
			n++
		}
	}
	return n
}

func (r *Runner) increment() int {
	span := r.opts.MaxIncrement - r.opts.MinIncrement + 1
	return r.opts.MinIncrement + r.opts.Rand(span)
}

func (r *Runner) forget(j *job) {
	r.mu.Lock()
	if r.jobs[j.key] == j {
		delete(r.jobs, j.key)
	}
	r.mu.Unlock()
	r.sched.Remove(j.entry)
}

// Run advances the work item by one tick. It implements cron.Job.
func (j *job) Run() {
	j.mu.Lock()
	if j.done {
		j.mu.Unlock()
		return
	}
	dept, err := j.tracker.Department(j.key.departmentID)
	if err != nil || dept.Status != models.DepartmentInProgress {
		// Approved or overridden elsewhere.
		j.done = true
		j.mu.Unlock()
		j.r.forget(j)
		return
	}

	// Ticks build on the tracker's value so manual progress updates are kept.
	base := 0
	if dept.CompletionPercentage != nil {
		base = *dept.CompletionPercentage
	}
	pct := min(max(base+j.r.increment(), 0), 100)
	finished := pct >= 100
	if finished {
		j.done = true
	}
	_ = j.tracker.SetProgress(j.key.departmentID, pct)

	var artifacts []string
	if finished {
		_ = j.tracker.SetStatus(j.key.departmentID, models.DepartmentCompleted)
		if tmpl, ok := catalog.Lookup(j.key.departmentID); ok {
			for _, name := range tmpl.Deliverables {
				_ = j.tracker.AddArtifact(j.key.departmentID, name)
				artifacts = append(artifacts, name)
			}
		}
	}
	j.mu.Unlock()

	hooks := j.r.opts.Hooks
	if hooks.OnProgress != nil {
		hooks.OnProgress(j.key.projectID, j.key.departmentID, pct)
	}
	if !finished {
		return
	}
	j.r.forget(j)
	j.r.opts.Logger.Debug("simulated work completed", "project", j.key.projectID, "department", j.key.departmentID)
	if hooks.OnComplete != nil {
		if done, err := j.tracker.Department(j.key.departmentID); err == nil {
			hooks.OnComplete(j.key.projectID, done, artifacts)
		}
	}
}

func (j *job) finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

func (j *job) cancel() {
	j.mu.Lock()
	already := j.done
	j.done = true
	j.mu.Unlock()
	if !already {
		j.r.forget(j)
	}
}
