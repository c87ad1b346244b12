package history

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kuratuapp/liquidationblitz/pkg/db"
	"github.com/kuratuapp/liquidationblitz/pkg/errors"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one processing attempt for a manifest file.
type Run struct {
	ID          string `gorm:"primaryKey"`
	LotNumber   string `gorm:"index"`
	SourceFile  string
	Status      string `gorm:"index"`
	ItemCount   int
	SkippedRows int
	ListedPrice string
	ReportURL   string
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Repository persists runs.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// Migrate creates the run table.
func (r *Repository) Migrate() error {
	return r.client.AutoMigrate(&Run{})
}

// Start records a new running attempt and returns it with its id set.
func (r *Repository) Start(ctx context.Context, lotNumber, sourceFile string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		LotNumber:  lotNumber,
		SourceFile: sourceFile,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.client.DB().WithContext(ctx).Create(run).Error; err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "history: create run")
	}
	return run, nil
}

// Outcome carries the fields recorded when a run finishes.
type Outcome struct {
	ItemCount   int
	SkippedRows int
	ListedPrice string
	ReportURL   string
	Err         error
}

// Finish marks the run as succeeded or failed based on the outcome.
func (r *Repository) Finish(ctx context.Context, run *Run, out Outcome) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.ItemCount = out.ItemCount
	run.SkippedRows = out.SkippedRows
	run.ListedPrice = out.ListedPrice
	run.ReportURL = out.ReportURL
	if out.Err != nil {
		run.Status = StatusFailed
		run.Error = out.Err.Error()
	} else {
		run.Status = StatusSucceeded
	}
	if err := r.client.DB().WithContext(ctx).Save(run).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "history: finish run")
	}
	return nil
}

// Recent lists the latest runs, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := r.client.DB().WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "history: list runs")
	}
	return runs, nil
}

// ByLot lists every attempt for a lot, newest first.
func (r *Repository) ByLot(ctx context.Context, lotNumber string) ([]Run, error) {
	var runs []Run
	err := r.client.DB().WithContext(ctx).
		Where("lot_number = ?", lotNumber).
		Order("started_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "history: list runs for lot")
	}
	return runs, nil
}

// LastSuccess returns the most recent succeeded run for a lot, or nil.
func (r *Repository) LastSuccess(ctx context.Context, lotNumber string) (*Run, error) {
	var run Run
	err := r.client.DB().WithContext(ctx).
		Where("lot_number = ? AND status = ?", lotNumber, StatusSucceeded).
		Order("started_at DESC").
		First(&run).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "history: last success")
	}
	return &run, nil
}
