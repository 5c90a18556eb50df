// Package sheets mirrors the activity journal into a Google Sheet so that
// dispatchers can filter and share it without database access.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/dispatch/internal/config"
	"github.com/mamadbah2/dispatch/internal/domain/models"
)

// RowWriter appends one row to a sheet range.
type RowWriter interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// GoogleSheetWriter implements RowWriter with the Google Sheets API.
type GoogleSheetWriter struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleSheetWriter builds a writer from a service-account credentials file.
func NewGoogleSheetWriter(ctx context.Context, cfg config.SheetsConfig) (*GoogleSheetWriter, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return &GoogleSheetWriter{service: service, spreadsheetID: cfg.SpreadsheetID}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (w *GoogleSheetWriter) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := w.service.Spreadsheets.Values.Append(w.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}
	return nil
}

// JournalMirror appends activity events as spreadsheet rows.
type JournalMirror struct {
	writer     RowWriter
	sheetRange string
	logger     *zap.Logger
}

// NewJournalMirror wires a mirror over a row writer.
func NewJournalMirror(writer RowWriter, sheetRange string, logger *zap.Logger) *JournalMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalMirror{writer: writer, sheetRange: sheetRange, logger: logger}
}

// Export writes one event.
func (m *JournalMirror) Export(ctx context.Context, event models.ActivityEvent) error {
	if err := m.writer.WriteRow(ctx, m.sheetRange, EventRow(event)); err != nil {
		return err
	}
	m.logger.Debug("activity mirrored to sheet", zap.String("activity_id", event.ID))
	return nil
}

// EventRow lays an event out as createdAt, kind, message, orderId,
// scheduleId, actor, tons, date.
func EventRow(e models.ActivityEvent) []interface{} {
	tons := ""
	if e.Tons != nil {
		tons = fmt.Sprintf("%g", *e.Tons)
	}
	date := ""
	if e.Date != nil {
		date = e.Date.String()
	}
	return []interface{}{
		e.CreatedAt.UTC().Format(time.RFC3339),
		string(e.Kind),
		e.Message,
		e.OrderID,
		e.ScheduleID,
		e.Actor,
		tons,
		date,
	}
}
