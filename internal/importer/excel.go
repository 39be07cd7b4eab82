package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names, matched case-insensitively.
const (
	SheetLocations  = "Locations"
	SheetHappenings = "Happenings"
)

// decodeExcel reads a seed workbook. Each sheet's first row names the columns; the names are
// the YAML keys. Cells hold raw values, so dates arrive as Excel serial numbers.
func decodeExcel(content []byte) (*seedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var seed seedFile
	for _, sheet := range f.GetSheetList() {
		kind := strings.ToLower(strings.TrimSpace(sheet))
		if kind != strings.ToLower(SheetLocations) && kind != strings.ToLower(SheetHappenings) {
			continue
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		header := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.ToLower(strings.TrimSpace(h))
		}
		for n, row := range rows[1:] {
			rec := make(map[string]string, len(header))
			blank := true
			for i, name := range header {
				if i < len(row) {
					rec[name] = strings.TrimSpace(row[i])
					if rec[name] != "" {
						blank = false
					}
				}
			}
			if blank {
				continue
			}
			line := n + 2
			if kind == strings.ToLower(SheetLocations) {
				loc, err := locationFromRow(rec)
				if err != nil {
					return nil, fmt.Errorf("sheet %q row %d: %w", sheet, line, err)
				}
				seed.Locations = append(seed.Locations, loc)
			} else {
				seed.Happenings = append(seed.Happenings, happeningFromRow(rec))
			}
		}
	}
	return &seed, nil
}

func locationFromRow(rec map[string]string) (seedLocation, error) {
	wifi, err := parseSeedBool(rec["wifi"])
	if err != nil {
		return seedLocation{}, fmt.Errorf("wifi: %w", err)
	}
	closed, err := parseSeedBool(rec["closed"])
	if err != nil {
		return seedLocation{}, fmt.Errorf("closed: %w", err)
	}
	return seedLocation{
		Key:         rec["key"],
		Title:       rec["title"],
		Description: rec["description"],
		Address:     rec["address"],
		URL:         rec["url"],
		Wifi:        wifi,
		Closed:      closed,
		Tags:        splitTags(rec["tags"]),
		DuplicateOf: rec["duplicate_of"],
	}, nil
}

func happeningFromRow(rec map[string]string) seedHappening {
	return seedHappening{
		Key:         rec["key"],
		Title:       rec["title"],
		Description: rec["description"],
		URL:         rec["url"],
		StartTime:   excelTime(rec["start_time"]),
		EndTime:     excelTime(rec["end_time"]),
		Location:    rec["location"],
		Tags:        splitTags(rec["tags"]),
		DuplicateOf: rec["duplicate_of"],
	}
}

// excelTime converts a serial date cell to the seed layout. Text cells pass through.
func excelTime(cell string) string {
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Round(time.Second).Format("2006-01-02 15:04:05")
}
