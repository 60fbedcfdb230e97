package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	"github.com/noah-isme/schedule-browser/pkg/config"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
	"github.com/noah-isme/schedule-browser/pkg/export"
)

// ExportFormat is a supported export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts csv, pdf or xlsx, case-insensitively.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportCSV, "":
		return ExportCSV, nil
	case ExportPDF:
		return ExportPDF, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

type listSnapshotter interface {
	Snapshot() ListSnapshot
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportRenderers overrides the file encoders. Nil fields use the defaults.
type ExportRenderers struct {
	CSV  csvRenderer
	PDF  pdfRenderer
	XLSX xlsxRenderer
}

var scheduleHeaders = []string{"Thứ", "Tiết", "Ca học", "Môn học", "Giáo viên", "Lớp", "Phòng"}

// ExportService renders the page currently shown by the list controller. It
// never fetches.
type ExportService struct {
	list   listSnapshotter
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   xlsxRenderer
	cfg    config.ExportConfig
	clock  clock.Clock
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(list listSnapshotter, cfg config.ExportConfig, clk clock.Clock, logger *zap.Logger, renderers ExportRenderers) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter()
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter()
	}
	return &ExportService{
		list:   list,
		csv:    renderers.CSV,
		pdf:    renderers.PDF,
		xlsx:   renderers.XLSX,
		cfg:    cfg,
		clock:  clk,
		logger: logger,
	}
}

// Export renders the displayed page in format.
func (s *ExportService) Export(_ context.Context, format ExportFormat) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrDisabled, "schedule export is disabled")
	}

	snap := s.list.Snapshot()
	if snap.State != ListPopulated && snap.State != ListEmpty {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "no schedule page is loaded")
	}

	dataset := scheduleDataset(snap)
	file := &ExportFile{
		Filename: s.buildFilename(snap.Pagination.CurrentPage, format),
		Rows:     len(snap.Items),
	}

	var err error
	switch format {
	case ExportCSV:
		file.ContentType = "text/csv; charset=utf-8"
		file.Body, err = s.csv.Render(dataset)
	case ExportPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(dataset, s.cfg.Title)
	case ExportXLSX:
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		file.Body, err = s.xlsx.Render(dataset, s.cfg.Title)
	default:
		return nil, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("schedule page exported",
		zap.String("format", string(format)),
		zap.Int("rows", file.Rows),
		zap.Int("page", snap.Pagination.CurrentPage),
	)
	return file, nil
}

func (s *ExportService) buildFilename(page int, format ExportFormat) string {
	if page < 1 {
		page = 1
	}
	timestamp := s.clock.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("thoi-khoa-bieu_trang-%d_%s.%s", page, timestamp, format)
}

func scheduleDataset(snap ListSnapshot) export.Dataset {
	rows := make([]map[string]string, 0, len(snap.Items))
	for _, item := range snap.Items {
		rows = append(rows, map[string]string{
			"Thứ":       weekdayText(item),
			"Tiết":      strconv.Itoa(item.Period),
			"Ca học":    sessionText(item),
			"Môn học":   item.Subject.Name,
			"Giáo viên": item.Teacher.Name,
			"Lớp":       item.Class.Name,
			"Phòng":     item.Room,
		})
	}
	return export.Dataset{
		Headers: scheduleHeaders,
		Rows:    rows,
		Notes:   filterNotes(snap),
		Widths:  []float64{1, 0.7, 1, 2.2, 2.2, 1, 1},
	}
}

func weekdayText(row models.ScheduleRow) string {
	if row.WeekdayText != "" {
		return row.WeekdayText
	}
	return models.WeekdayLabel(row.Weekday)
}

func sessionText(row models.ScheduleRow) string {
	if row.SessionText != "" {
		return row.SessionText
	}
	return models.SessionLabel(row.Session)
}

func filterNotes(snap ListSnapshot) []string {
	applied := snap.Applied
	var notes []string
	if applied.Search != "" {
		notes = append(notes, fmt.Sprintf("Tìm kiếm: %s", applied.Search))
	}
	if applied.Weekday != 0 {
		notes = append(notes, fmt.Sprintf("Thứ: %s", models.WeekdayLabel(applied.Weekday)))
	}
	if applied.Session != "" {
		notes = append(notes, fmt.Sprintf("Ca học: %s", models.SessionLabel(applied.Session.WireValue())))
	}
	if applied.TeacherID != 0 {
		notes = append(notes, fmt.Sprintf("Giáo viên: #%d", applied.TeacherID))
	}
	if applied.ClassID != 0 {
		notes = append(notes, fmt.Sprintf("Lớp: #%d", applied.ClassID))
	}
	p := snap.Pagination
	notes = append(notes, fmt.Sprintf("Trang %d/%d, tổng %d tiết", max(p.CurrentPage, 1), max(p.TotalPages, 1), p.Total))
	return notes
}
