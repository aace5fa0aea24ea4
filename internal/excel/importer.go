package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	UserID      int64  // Owner of the stack
	StackName   string // Stack to import into, created when missing
	FrontColumn string // Column with the prompt
	BackColumn  string // Column with the expected answer
	HintColumn  string // Column with an optional hint
	SheetName   string // Sheet to import; empty means the first sheet
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn: "A",
		BackColumn:  "B",
		HintColumn:  "C",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	StackID        int64    `json:"stackId"`
	StackCreated   bool     `json:"stackCreated"`
	TotalProcessed int      `json:"totalProcessed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

type cardRow struct {
	front, back, hint string
}

// Importer loads stacks from spreadsheet files
type Importer struct {
	repos *database.Repositories
}

func NewImporter(repos *database.Repositories) *Importer {
	return &Importer{repos: repos}
}

// Import imports cards from an Excel or CSV file into a user's stack
func (im *Importer) Import(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	if config.StackName == "" {
		return nil, errors.New("stack name cannot be empty")
	}
	if config.StartRow < 1 {
		config.StartRow = 1
	}

	var (
		rows []cardRow
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config)
	} else {
		rows, err = readExcel(config)
	}
	if err != nil {
		return nil, err
	}

	stack, created, err := im.repos.Stacks.GetOrCreate(ctx, config.UserID, config.StackName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack: %w", err)
	}

	result := &ImportResult{StackID: stack.ID, StackCreated: created, Errors: make([]string, 0)}
	for i, row := range rows {
		if row.front == "" && row.back == "" {
			continue
		}
		result.TotalProcessed++
		if err := im.processRow(ctx, stack.ID, row, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", config.StartRow+i, err))
		}
	}
	return result, nil
}

// readExcel returns data rows starting at config.StartRow
func readExcel(config ImportConfig) ([]cardRow, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	frontIdx := columnToIndex(config.FrontColumn)
	backIdx := columnToIndex(config.BackColumn)
	hintIdx := -1
	if config.HintColumn != "" {
		hintIdx = columnToIndex(config.HintColumn)
	}

	var out []cardRow
	for i := config.StartRow - 1; i < len(rows); i++ {
		row := rows[i]
		out = append(out, cardRow{
			front: cell(row, frontIdx),
			back:  cell(row, backIdx),
			hint:  cell(row, hintIdx),
		})
	}
	return out, nil
}

// readCSV reads front,back[,hint] records starting at config.StartRow
func readCSV(config ImportConfig) ([]cardRow, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var out []cardRow
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		out = append(out, cardRow{front: cell(row, 0), back: cell(row, 1), hint: cell(row, 2)})
	}
	return out, nil
}

func (im *Importer) processRow(ctx context.Context, stackID int64, row cardRow, result *ImportResult) error {
	front := cleanWord(row.front)
	back := cleanWord(row.back)
	hint := strings.TrimSpace(row.hint)

	if front == "" {
		return errors.New("front cannot be empty")
	}
	if back == "" {
		return errors.New("back cannot be empty")
	}

	existing, err := im.repos.Cards.GetByFront(ctx, stackID, front)
	switch {
	case errors.Is(err, database.ErrNotFound):
		card := &models.Card{StackID: stackID, Front: front, Back: back, Hint: hint}
		if err := im.repos.Cards.Create(ctx, card); err != nil {
			return err
		}
		result.Created++
		return nil
	case err != nil:
		return err
	}

	if existing.Back == back && existing.Hint == hint {
		result.Skipped++
		return nil
	}
	existing.Back = back
	existing.Hint = hint
	if err := im.repos.Cards.Update(ctx, existing); err != nil {
		return err
	}
	result.Updated++
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cleanWord удаляет из слова дополнительную информацию в скобках
func cleanWord(word string) string {
	// "go (went, gone)" -> "go"
	indexOpenParen := strings.Index(word, "(")
	if indexOpenParen > 0 {
		return strings.TrimSpace(word[:indexOpenParen])
	}
	return strings.TrimSpace(word)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
