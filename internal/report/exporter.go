package report

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"littletoes/internal/models"

	"github.com/xuri/excelize/v2"
)

// ErrNoData is reported when an export is attempted on an empty history
var ErrNoData = errors.New("no results to export yet")

const (
	chartSheet  = "Chart Data"
	detailSheet = "Detailed Results"
)

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Means holds the per-criterion score averages, rounded to two decimals
type Means struct {
	Pronunciation float64
	Grammar       float64
	Relevance     float64
}

// ComputeMeans derives the per-criterion averages from a history snapshot.
// Always computed fresh from the full history, never cached.
func ComputeMeans(entries []models.HistoryEntry) (Means, error) {
	if len(entries) == 0 {
		return Means{}, ErrNoData
	}

	var pron, gram, rel int
	for _, e := range entries {
		pron += e.PronunciationScore
		gram += e.GrammarScore
		rel += e.RelevanceScore
	}

	n := float64(len(entries))
	return Means{
		Pronunciation: round2(float64(pron) / n),
		Grammar:       round2(float64(gram) / n),
		Relevance:     round2(float64(rel) / n),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Export renders the history snapshot as a two-sheet workbook: a summary
// sheet with per-criterion averages and a detail sheet with one row per
// entry. Empty history reports ErrNoData and produces no file.
func Export(entries []models.HistoryEntry, learnerName string, unitID int64, now time.Time) (*excelize.File, string, error) {
	means, err := ComputeMeans(entries)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()

	// Summary sheet goes first so it's the first thing seen
	if err := f.SetSheetName("Sheet1", chartSheet); err != nil {
		return nil, "", fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeChartSheet(f, means); err != nil {
		return nil, "", err
	}

	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, "", fmt.Errorf("failed to create detail sheet: %w", err)
	}
	if err := writeDetailSheet(f, entries); err != nil {
		return nil, "", err
	}

	idx, err := f.GetSheetIndex(chartSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	return f, Filename(learnerName, unitID, now), nil
}

// writeChartSheet lays out criteria vs. average score, shaped for a bar
// chart (criteria on the horizontal axis, averages as values).
func writeChartSheet(f *excelize.File, means Means) error {
	rows := [][]interface{}{
		{"Criteria", "Average Score"},
		{"Pronunciation", means.Pronunciation},
		{"Grammar", means.Grammar},
		{"Relevance (Right Answer)", means.Relevance},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(chartSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if err := f.SetColWidth(chartSheet, "A", "A", 25); err != nil {
		return fmt.Errorf("failed to set summary column width: %w", err)
	}
	return f.SetColWidth(chartSheet, "B", "B", 15)
}

func writeDetailSheet(f *excelize.File, entries []models.HistoryEntry) error {
	header := []interface{}{
		"Question", "Pronunciation", "Grammar", "Relevance",
		"Student Said", "Feedback", "Learner", "Unit", "Time",
	}
	if err := f.SetSheetRow(detailSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write detail header: %w", err)
	}

	for i, e := range entries {
		row := []interface{}{
			e.PromptText,
			e.PronunciationScore,
			e.GrammarScore,
			e.RelevanceScore,
			e.Transcription,
			e.Feedback,
			e.LearnerName,
			e.UnitID,
			e.Timestamp.Format("2006-01-02 15:04:05"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write detail row: %w", err)
		}
	}

	widths := []struct {
		col   string
		width float64
	}{
		{"A", 30}, {"B", 15}, {"C", 15}, {"D", 15},
		{"E", 40}, {"F", 40}, {"G", 15}, {"H", 8}, {"I", 20},
	}
	for _, w := range widths {
		if err := f.SetColWidth(detailSheet, w.col, w.col, w.width); err != nil {
			return fmt.Errorf("failed to set detail column width: %w", err)
		}
	}
	return nil
}

// Filename builds the deterministic report filename from session identity.
// Non-alphanumeric characters in the learner name are stripped.
func Filename(learnerName string, unitID int64, now time.Time) string {
	learner := filenameSanitizer.ReplaceAllString(learnerName, "")
	if learner == "" {
		learner = "Learner"
	}
	return fmt.Sprintf("LittleTOEs_Report_%s_Unit%d_%s.xlsx", learner, unitID, now.Format("2006-01-02"))
}
