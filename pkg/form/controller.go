package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/menta2k/detect-cropper/internal/logger"
	"github.com/menta2k/detect-cropper/internal/metrics"
	"github.com/menta2k/detect-cropper/pkg/labels"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// ErrBusy is returned by Submit while a job is running
var ErrBusy = errors.New("a job is already running")

// DefaultJobHistory is how many submitted jobs stay reachable through Job
const DefaultJobHistory = 100

// Runner executes one extraction job
type Runner interface {
	Run(ctx context.Context, req types.CropRequest) (types.JobSummary, error)
}

// Notifier shows the terminal dialogs of a submit cycle
type Notifier interface {
	Info(title, message string)
	Warning(title, message string)
	Error(title, message string)
}

// Option configures a Controller
type Option func(*Controller)

// WithConfidence sets the detector score threshold copied into every request
func WithConfidence(conf float64) Option {
	return func(c *Controller) { c.confidence = conf }
}

// WithMetrics counts finished jobs
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithContext sets the context jobs run under. Cancelling it stops a running
// job between images.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// WithJobHistory caps how many jobs Job can still find. The oldest are
// forgotten first. Values below 1 are ignored.
func WithJobHistory(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.history = n
		}
	}
}

// Controller validates form input and runs at most one job at a time
type Controller struct {
	runner     Runner
	notifier   Notifier
	labels     *labels.Labels
	confidence float64
	metrics    *metrics.Metrics
	ctx        context.Context

	mu      sync.Mutex
	state   State
	jobs    map[string]*Job
	order   []string
	history int
	wg      sync.WaitGroup
}

// NewController creates a Controller in the Idle state
func NewController(runner Runner, notifier Notifier, names *labels.Labels, opts ...Option) *Controller {
	if names == nil {
		names = labels.Default()
	}
	c := &Controller{
		runner:   runner,
		notifier: notifier,
		labels:   names,
		ctx:      context.Background(),
		state:    Idle,
		jobs:     make(map[string]*Job),
		history:  DefaultJobHistory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Labels returns the class list offered by the form
func (c *Controller) Labels() *labels.Labels {
	return c.labels
}

// State returns the controller's current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Job looks up a submitted job
func (c *Controller) Job(id string) (*Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	return j, ok
}

// Submit validates in and, when it passes, starts a job in the background.
// Invalid input shows a warning, returns a *ValidationError and leaves the
// controller Idle without starting anything.
func (c *Controller) Submit(in Input) (*Job, error) {
	c.mu.Lock()
	if c.state == Running || c.state == Validating {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = Validating
	req, err := Validate(in, c.labels)
	if err != nil {
		c.state = Idle
		c.mu.Unlock()

		var verr *ValidationError
		if errors.As(err, &verr) {
			c.notify(dialogWarning, TitleInputError, verr.Message)
		}
		logger.Log().Warn("Rejected form input", zap.Error(err))
		return nil, err
	}

	req.Confidence = c.confidence
	job := newJob(req)
	c.remember(job)
	c.state = Running
	c.wg.Add(1)
	c.mu.Unlock()

	logger.Log().Info("Job started",
		zap.String("job_id", job.ID),
		zap.String("source", req.SourceDir),
		zap.String("class", req.ClassName))

	go c.run(job)
	return job, nil
}

// remember records job and drops the oldest entries past the history cap.
// Only one job runs at a time so everything dropped has already finished.
// Callers hold c.mu.
func (c *Controller) remember(job *Job) {
	c.jobs[job.ID] = job
	c.order = append(c.order, job.ID)
	for len(c.order) > c.history {
		delete(c.jobs, c.order[0])
		c.order = c.order[1:]
	}
}

// Wait blocks until no job is running
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) run(job *Job) {
	defer c.wg.Done()

	summary, err := c.runner.Run(c.ctx, job.Request)

	final := Succeeded
	if err != nil {
		final = Failed
	}
	c.mu.Lock()
	c.state = final
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.JobFinished(final.String())
	}

	if err != nil {
		logger.Log().Error("Job failed", zap.String("job_id", job.ID), zap.Error(err))
		c.notify(dialogError, TitleError, err.Error())
	} else {
		logger.Log().Info("Job finished",
			zap.String("job_id", job.ID),
			zap.Int("crops", summary.Crops),
			zap.Int("skipped", summary.Skipped))
		c.notify(dialogInfo, TitleSuccess, SuccessMessage(summary))
	}

	job.finish(Outcome{Summary: summary, Err: err})
}

type dialogKind int

const (
	dialogInfo dialogKind = iota
	dialogWarning
	dialogError
)

func (c *Controller) notify(kind dialogKind, title, message string) {
	if c.notifier == nil {
		return
	}
	switch kind {
	case dialogInfo:
		c.notifier.Info(title, message)
	case dialogWarning:
		c.notifier.Warning(title, message)
	case dialogError:
		c.notifier.Error(title, message)
	}
}

// SuccessMessage is the text of the completion dialog
func SuccessMessage(s types.JobSummary) string {
	return fmt.Sprintf("Processing complete.\nCropped images and detection previews are saved in:\n%s", s.Output)
}
