package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/platform/phone"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"}

// importRow is one referral to backfill. Agent holds an email when it
// contains "@", otherwise a display name.
type importRow struct {
	Line         int
	Phone        string
	Agent        string
	ReferralDate time.Time
	Type         string
}

func (r importRow) agentIsEmail() bool {
	return strings.Contains(r.Agent, "@")
}

type rowError struct {
	Line int
	Err  error
}

func (e rowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// parseRows reads phone,agent,referral_date[,type] records. A first record
// whose first column is "phone" is treated as a header.
func parseRows(r io.Reader, region string) ([]importRow, []rowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows    []importRow
		invalid []rowError
		line    int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "phone") {
			continue
		}
		if isBlank(record) {
			continue
		}

		row, err := parseRecord(line, record, region)
		if err != nil {
			invalid = append(invalid, rowError{Line: line, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, invalid, nil
}

func parseRecord(line int, record []string, region string) (importRow, error) {
	if len(record) < 3 {
		return importRow{}, fmt.Errorf("expected at least 3 columns, got %d", len(record))
	}

	number, err := phone.Normalize(record[0], region)
	if err != nil {
		return importRow{}, fmt.Errorf("phone %q: %w", record[0], err)
	}

	agent := strings.TrimSpace(record[1])
	if agent == "" {
		return importRow{}, errors.New("agent is required")
	}

	date, err := parseDate(record[2])
	if err != nil {
		return importRow{}, err
	}

	refType := domain.TypeEmployee
	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		refType = strings.ToLower(strings.TrimSpace(record[3]))
	}
	if !domain.IsValidReferralType(refType) {
		return importRow{}, fmt.Errorf("invalid referral type %q", refType)
	}

	return importRow{
		Line:         line,
		Phone:        number,
		Agent:        agent,
		ReferralDate: date,
		Type:         refType,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid referral date %q", value)
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
