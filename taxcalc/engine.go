// Package taxcalc computes Korean real-estate taxes for the 2025 tax year:
// capital gains tax (양도소득세), gift tax (증여세), acquisition tax (취득세)
// and capital gains tax on reconstruction-project new builds.
//
// Every calculation is a pure function of its input and the read-only rate
// tables, so an Engine may be shared freely between goroutines.
package taxcalc

import (
	"github.com/shopspring/decimal"
)

// Engine runs tax calculations against one set of rate tables.
type Engine struct {
	tables *Tables
}

// NewEngine returns an engine for the given tables. The tables must not be
// modified afterwards.
func NewEngine(tables *Tables) *Engine {
	return &Engine{tables: tables}
}

// Default returns an engine over the embedded 2025 tables.
func Default() *Engine {
	return NewEngine(DefaultTables())
}

// Tables returns the engine's rate tables.
func (e *Engine) Tables() *Tables {
	return e.tables
}

var half = decimal.NewFromFloat(0.5)

// jointShare halves a gain for one of two co-owners.
func jointShare(gain decimal.Decimal, joint bool) decimal.Decimal {
	if joint {
		return gain.Mul(half)
	}
	return gain
}

// exemptGain returns the part of a gain exempt under the one-household
// one-house rule: all of it up to the threshold price, a prorated share above.
func (e *Engine) exemptGain(gain decimal.Decimal, salePrice int64, eligible bool) decimal.Decimal {
	if !eligible {
		return decimal.Zero
	}
	threshold := e.tables.CapitalGains.ExemptionThreshold
	if salePrice <= threshold {
		return gain
	}
	return gain.Mul(decimal.NewFromInt(threshold)).Div(decimal.NewFromInt(salePrice))
}

// gainTail is the part of a capital gains calculation shared by the ordinary
// and reconstruction engines, from gain income down to the taxable base.
type gainTail struct {
	income         int64
	basicDeduction int64
	base           int64
}

func (e *Engine) taxBase(income decimal.Decimal) gainTail {
	whole := income.IntPart()
	basic := max(0, min(whole, e.tables.CapitalGains.BasicDeduction))
	return gainTail{
		income:         whole,
		basicDeduction: basic,
		base:           max(0, whole-basic),
	}
}

// localSurtax is 지방소득세, rounded down.
func (e *Engine) localSurtax(tax int64) int64 {
	return decimal.NewFromInt(tax).Mul(e.tables.CapitalGains.LocalSurtaxRate).Floor().IntPart()
}

func truncate(d decimal.Decimal) int64 {
	return d.IntPart()
}
