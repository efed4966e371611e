package main

import (
	"strings"
	"testing"
	"time"

	"finders_crm_backend/internal/referrals/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowsNormalizesAndDefaults(t *testing.T) {
	input := strings.Join([]string{
		"phone,agent,referral_date,type",
		"+961 3 123 456,alice@finders.example,2026-01-10,",
		"03 123 457,Bob Haddad,2026-01-11T09:30:00Z,custom",
		"",
	}, "\n")

	rows, invalid, err := parseRows(strings.NewReader(input), "LB")
	require.NoError(t, err)
	assert.Empty(t, invalid)
	require.Len(t, rows, 2)

	assert.Equal(t, "+9613123456", rows[0].Phone)
	assert.True(t, rows[0].agentIsEmail())
	assert.Equal(t, domain.TypeEmployee, rows[0].Type)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), rows[0].ReferralDate)

	assert.Equal(t, "+9613123457", rows[1].Phone)
	assert.False(t, rows[1].agentIsEmail())
	assert.Equal(t, domain.TypeCustom, rows[1].Type)
	assert.Equal(t, 3, rows[1].Line)
}

func TestParseRowsCollectsInvalidLines(t *testing.T) {
	input := strings.Join([]string{
		"not-a-phone,alice@finders.example,2026-01-10",
		"+9613123456,,2026-01-10",
		"+9613123456,alice@finders.example,yesterday",
		"+9613123456,alice@finders.example,2026-01-10,partner",
		"+9613123456,alice@finders.example",
		"+9613123456,alice@finders.example,2026-01-10",
	}, "\n")

	rows, invalid, err := parseRows(strings.NewReader(input), "LB")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 6, rows[0].Line)

	lines := make([]int, len(invalid))
	for i, e := range invalid {
		lines[i] = e.Line
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, lines)
}
