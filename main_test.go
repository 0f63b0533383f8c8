package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goPropertyTax/taxcalc"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_CapitalGains(t *testing.T) {
	out, err := runCLI(t, "capital-gains",
		"--sale-price", "1200000000",
		"--acquisition-price", "600000000",
		"--holding-years", "10",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "CAPITAL GAINS TAX")
	assert.Contains(t, out, "477,500,000 KRW")
	assert.Contains(t, out, "181,566,000 KRW")
}

func TestCLI_CapitalGains_JSON(t *testing.T) {
	out, err := runCLI(t, "cgt",
		"--sale-price", "1200000000",
		"--acquisition-price", "600000000",
		"--holding-years", "10",
		"--json",
	)
	require.NoError(t, err)

	var res taxcalc.CapitalGainsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(181_566_000), res.FinalTax)
	assert.Equal(t, "0.4", res.AppliedRate.String())
}

func TestCLI_Gift(t *testing.T) {
	out, err := runCLI(t, "gift", "--relationship", "직계비속 (성인)", "--value", "100000000")
	require.NoError(t, err)
	assert.Contains(t, out, "4,850,000 KRW")
}

func TestCLI_Acquisition(t *testing.T) {
	out, err := runCLI(t, "acquisition-tax",
		"--property", "housing",
		"--houses", "2",
		"--price", "500000000",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "45,000,000 KRW")

	out, err = runCLI(t, "acquisition-tax",
		"--property", "housing",
		"--houses", "2주택",
		"--regulated=false",
		"--price", "500000000",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "6,500,000 KRW")
}

func TestCLI_Reconstruction_InvalidDate(t *testing.T) {
	_, err := runCLI(t, "reconstruction", "--sale-date", "2025-13-01")
	assert.ErrorIs(t, err, taxcalc.ErrInvalidDate)
}

func TestCLI_PDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gift.pdf")

	_, err := runCLI(t, "gift", "--value", "100000000", "--pdf", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestCLI_Rates(t *testing.T) {
	out, err := runCLI(t, "rates")
	require.NoError(t, err)

	var tables taxcalc.Tables
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Equal(t, 2025, tables.Year)
	assert.Len(t, tables.CapitalGains.BasicBrackets, 8)
	assert.Equal(t, taxcalc.Unbounded, tables.CapitalGains.BasicBrackets[7].Upper)
	assert.NotContains(t, out, "9223372036854775807")
}

func TestCLI_CustomRates(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("taxcalc", "rates_2025.yaml"))
	require.NoError(t, err)
	custom := strings.Replace(string(data), "basic_deduction: 2500000", "basic_deduction: 0", 1)
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	out, err := runCLI(t, "--rates", path, "capital-gains",
		"--sale-price", "1200000000",
		"--acquisition-price", "600000000",
		"--holding-years", "10",
	)
	require.NoError(t, err)
	// Base 480,000,000 × 40% − 25,940,000 = 166,060,000, plus 10% local tax.
	assert.Contains(t, out, "182,666,000 KRW")
}

func TestCLI_RatesErrors(t *testing.T) {
	_, err := runCLI(t, "--rates", filepath.Join(t.TempDir(), "absent.yaml"), "rates")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("year: 2025\ncapital_gains:\n  basic_brackets: []\n"), 0o600))
	_, err = runCLI(t, "--rates", path, "rates")
	assert.ErrorIs(t, err, taxcalc.ErrInvalidTables)
}

func TestCLI_ServeRejectsBadConfig(t *testing.T) {
	_, err := runCLI(t, "serve", "--log-level", "chatty")
	assert.ErrorIs(t, err, errInvalidSettings)
}
