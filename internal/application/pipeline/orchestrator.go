// Package pipeline drives one export run end to end: stream order summaries
// from the fetcher, flatten them, accumulate rows, and only after the whole
// history has arrived write the two CSV exports and record the run in the
// ledger. A fatal fetch error aborts before anything is written — a partial
// pivot table is worse than no table.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/doordash-export/internal/doordash"
	"github.com/eshaffer321/doordash-export/internal/export"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/storage"
	"github.com/eshaffer321/doordash-export/internal/normalize"
)

// summarySource streams order summaries; *doordash.Fetcher implements it.
type summarySource interface {
	Orders(ctx context.Context) iter.Seq2[*doordash.OrderSummary, error]
}

// Options configures one export run.
type Options struct {
	ItemizedPath string
	PivotPath    string
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	Orders       int
	Rows         int
	Warnings     int
	ItemizedPath string
	PivotPath    string
}

// Orchestrator owns the accumulated row collection for a run. The ledger is
// optional; a nil storage disables run recording.
type Orchestrator struct {
	fetcher summarySource
	store   *storage.Storage
	logger  *slog.Logger
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(fetcher summarySource, store *storage.Storage, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		logger:  logger.With(slog.String("system", "pipeline")),
	}
}

// Run executes the full pipeline. Fatal errors (schema drift, API errors,
// malformed responses, transport failures) abort with no export written.
// Ledger failures are logged and do not fail the export.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	run := &storage.ExportRun{
		ID:           uuid.NewString(),
		StartedAt:    time.Now(),
		ItemizedPath: opts.ItemizedPath,
		PivotPath:    opts.PivotPath,
	}
	o.recordStart(run)

	builder := export.NewBuilder()
	orders := 0
	warningCount := 0

	for summary, err := range o.fetcher.Orders(ctx) {
		if err != nil {
			o.recordFinish(run, storage.RunStatusError, err.Error(), orders, builder.Len(), warningCount)
			return nil, err
		}
		rows, warnings := normalize.Flatten(summary)
		for _, w := range warnings {
			o.logger.Warn(w.Message, slog.String("order_id", w.OrderID))
		}
		warningCount += len(warnings)
		orders++
		builder.Add(rows...)
	}

	o.logger.Info("writing itemized CSV", slog.String("path", opts.ItemizedPath))
	if err := export.WriteCSVFile(opts.ItemizedPath, builder.Itemized()); err != nil {
		o.recordFinish(run, storage.RunStatusError, err.Error(), orders, builder.Len(), warningCount)
		return nil, fmt.Errorf("write itemized export: %w", err)
	}

	o.logger.Info("writing pivoted CSV", slog.String("path", opts.PivotPath))
	if err := export.WriteCSVFile(opts.PivotPath, builder.Pivot()); err != nil {
		o.recordFinish(run, storage.RunStatusError, err.Error(), orders, builder.Len(), warningCount)
		return nil, fmt.Errorf("write pivot export: %w", err)
	}

	o.recordOrders(run.ID, builder)
	o.recordFinish(run, storage.RunStatusSuccess, "", orders, builder.Len(), warningCount)

	return &Result{
		RunID:        run.ID,
		Orders:       orders,
		Rows:         builder.Len(),
		Warnings:     warningCount,
		ItemizedPath: opts.ItemizedPath,
		PivotPath:    opts.PivotPath,
	}, nil
}

func (o *Orchestrator) recordStart(run *storage.ExportRun) {
	if o.store == nil {
		return
	}
	if err := o.store.StartRun(run); err != nil {
		o.logger.Warn("failed to record run start", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) recordFinish(run *storage.ExportRun, status, errMsg string, orders, rows, warnings int) {
	if o.store == nil {
		return
	}
	run.Status = status
	run.ErrorMessage = errMsg
	run.OrderCount = orders
	run.RowCount = rows
	run.WarningCount = warnings
	if err := o.store.FinishRun(run); err != nil {
		o.logger.Warn("failed to record run finish", slog.String("error", err.Error()))
	}
}

// recordOrders groups the accumulated rows back by order and upserts one
// ledger record per order.
func (o *Orchestrator) recordOrders(runID string, builder *export.Builder) {
	if o.store == nil {
		return
	}
	for _, group := range builder.Groups() {
		itemsJSON, _ := json.Marshal(group.Rows)
		record := &storage.OrderRecord{
			OrderID:     group.OrderID,
			RunID:       runID,
			OrderDate:   group.Date,
			Store:       group.Store,
			ItemCount:   len(group.Rows),
			PersonCount: group.PersonCount,
			ItemsJSON:   string(itemsJSON),
		}
		if err := o.store.SaveOrderRecord(record); err != nil {
			o.logger.Warn("failed to record order",
				slog.String("order_id", group.OrderID),
				slog.String("error", err.Error()))
		}
	}
}
