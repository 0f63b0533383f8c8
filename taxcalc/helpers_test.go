package taxcalc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func assertRate(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w := decimal.RequireFromString(want)
	if !w.Equal(got) {
		assert.Fail(t, "rate mismatch: want "+w.String()+", got "+got.String(), msgAndArgs...)
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return Default()
}
