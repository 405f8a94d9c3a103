package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet     = "Summary"
	enrollmentsSheet = "Enrollments"
	leaderboardSheet = "Leaderboard"

	xlsxTimeLayout = "2006-01-02 15:04:05"
)

type exportService struct {
	baseService
	courses      CourseService
	gamification GamificationService
}

func NewExportService(base baseService, courses CourseService, gamification GamificationService) ExportService {
	return &exportService{
		baseService:  base,
		courses:      courses,
		gamification: gamification,
	}
}

// ExportCourseAnalytics renders the analytics summary and every enrollment
// of the course as a workbook. Authorization matches GetAnalytics.
func (s *exportService) ExportCourseAnalytics(ctx context.Context, courseID string, caller Caller) (*ExportFile, error) {
	s.logger.Info("Exporting course analytics", "course_id", courseID, "user_id", caller.ID)

	analytics, err := s.courses.GetAnalytics(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Course", course.Title},
		{"Course ID", course.ID},
		{"Status", string(course.Status)},
		{"Total lessons", course.TotalLessons},
		{"Total enrollments", analytics.TotalEnrollments},
		{"Active enrollments", analytics.ActiveEnrollments},
		{"Completed enrollments", analytics.CompletedEnrollments},
		{"Dropped enrollments", analytics.DroppedEnrollments},
		{"Completion rate", analytics.CompletionRate},
		{"Average progress", analytics.AverageProgress},
		{"Generated at", s.now().UTC().Format(xlsxTimeLayout)},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(enrollmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to create enrollments sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Enrollment ID", "User ID", "Status", "Progress %", "Completed lessons", "Enrolled at", "Last accessed", "Completed at"},
	}
	for _, e := range enrollments {
		rows = append(rows, []interface{}{
			e.ID,
			e.UserID,
			string(e.Status),
			e.ProgressPercentage,
			e.CompletedLessons,
			e.EnrolledAt.UTC().Format(xlsxTimeLayout),
			formatOptionalTime(e.LastAccessedAt),
			formatOptionalTime(e.CompletedAt),
		})
	}
	if err := writeRows(f, enrollmentsSheet, rows); err != nil {
		return nil, err
	}
	if err := boldHeader(f, enrollmentsSheet, len(rows[0])); err != nil {
		return nil, err
	}

	content, err := workbookBytes(f)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		FileName: fmt.Sprintf("course-%s-analytics.xlsx", course.ID),
		Content:  content,
	}, nil
}

func (s *exportService) ExportLeaderboard(ctx context.Context, limit int) (*ExportFile, error) {
	entries, err := s.gamification.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return nil, fmt.Errorf("failed to create leaderboard sheet: %w", err)
	}

	rows := [][]interface{}{{"Rank", "User ID", "Name", "XP", "Streak"}}
	for _, entry := range entries {
		rows = append(rows, []interface{}{entry.Rank, entry.UserID, entry.FullName, entry.XPPoints, entry.CurrentStreak})
	}
	if err := writeRows(f, leaderboardSheet, rows); err != nil {
		return nil, err
	}
	if err := boldHeader(f, leaderboardSheet, len(rows[0])); err != nil {
		return nil, err
	}

	content, err := workbookBytes(f)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		FileName: fmt.Sprintf("leaderboard-%s.xlsx", s.now().UTC().Format("20060102")),
		Content:  content,
	}, nil
}

// ===== WORKBOOK HELPERS =====

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func boldHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("failed to address header: %w", err)
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(xlsxTimeLayout)
}

