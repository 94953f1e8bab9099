package geom

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

// StatusRow is one line of a country status sheet.
type StatusRow struct {
	Code   string
	Status string
}

// LoadStatusCSV reads a country status sheet from path.
func LoadStatusCSV(path string) ([]StatusRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStatusCSV(f)
}

// ReadStatusCSV parses a CSV with a code column and a status column.
// Column detection: code|iso|iso2|iso3|iso_a2|iso_a3|country and
// status|state (case-insensitive). Rows with an empty code are skipped.
func ReadStatusCSV(r io.Reader) ([]StatusRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty csv")
	}
	header := recs[0]
	idxCode, idxStatus := -1, -1
	for i, h := range header {
		switch {
		case isCodeColumn(h):
			if idxCode == -1 {
				idxCode = i
			}
		case isStatusColumn(h):
			if idxStatus == -1 {
				idxStatus = i
			}
		}
	}
	if idxCode == -1 || idxStatus == -1 {
		return nil, errors.New("csv: code/status columns not found")
	}
	var rows []StatusRow
	for _, rec := range recs[1:] {
		if idxCode >= len(rec) || idxStatus >= len(rec) {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(rec[idxCode]))
		if code == "" {
			continue
		}
		rows = append(rows, StatusRow{Code: code, Status: strings.ToLower(strings.TrimSpace(rec[idxStatus]))})
	}
	return rows, nil
}

// LoadCodeList reads a list of country codes from path.
func LoadCodeList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCodeList(f)
}

// ReadCodeList parses one code per line, or a CSV whose header names a
// code column (same names as ReadStatusCSV). Blank lines and lines
// starting with # are skipped. Codes are upper-cased.
func ReadCodeList(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	col := 0
	if len(recs) > 0 {
		for i, h := range recs[0] {
			if isCodeColumn(h) {
				col = i
				recs = recs[1:]
				break
			}
		}
	}
	var codes []string
	for _, rec := range recs {
		if col >= len(rec) {
			continue
		}
		if code := strings.ToUpper(strings.TrimSpace(rec[col])); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func isCodeColumn(h string) bool {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "code", "iso", "iso2", "iso3", "iso_a2", "iso_a3", "country":
		return true
	}
	return false
}

func isStatusColumn(h string) bool {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "status", "state":
		return true
	}
	return false
}
