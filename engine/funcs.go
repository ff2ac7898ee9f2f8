package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BUILT-IN FUNCTIONS
// =============================================================================

type function struct {
	minArgs int
	maxArgs int  // -1 for variadic
	spread  bool // slot-group identifiers are allowed as arguments
	call    func(env *evalEnv, args []node) Value
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"sum":      {minArgs: 1, maxArgs: -1, spread: true, call: fnSum},
		"count":    {minArgs: 1, maxArgs: -1, spread: true, call: fnCount},
		"avg":      {minArgs: 1, maxArgs: -1, spread: true, call: fnAvg},
		"min":      {minArgs: 1, maxArgs: -1, spread: true, call: fnExtreme(-1)},
		"max":      {minArgs: 1, maxArgs: -1, spread: true, call: fnExtreme(1)},
		"coalesce": {minArgs: 1, maxArgs: -1, call: fnCoalesce},
		"if":       {minArgs: 3, maxArgs: 3, call: fnIf},
		"isblank":  {minArgs: 1, maxArgs: 1, call: fnIsBlank},
		"blank":    {minArgs: 0, maxArgs: 0, call: func(*evalEnv, []node) Value { return Blank() }},
		"round":    {minArgs: 1, maxArgs: 2, call: fnRound},
		"and":      {minArgs: 1, maxArgs: -1, call: fnAnd},
		"or":       {minArgs: 1, maxArgs: -1, call: fnOr},
		"not":      {minArgs: 1, maxArgs: 1, call: fnNot},
		"seqid":    {minArgs: 1, maxArgs: 2, call: fnSeqID},
	}
}

// checkCall validates a call site against the function table. It runs at
// schema build time so evaluation never sees an unknown function.
func checkCall(c *callNode) error {
	fn, ok := functions[c.name]
	if !ok {
		return fmt.Errorf("unknown function %s()", c.name)
	}
	if len(c.args) < fn.minArgs || (fn.maxArgs >= 0 && len(c.args) > fn.maxArgs) {
		return fmt.Errorf("%s() called with %d arguments", c.name, len(c.args))
	}
	if c.name == "seqid" {
		if _, ok := c.args[0].(*strLit); !ok {
			return fmt.Errorf("seqid() prefix must be a string literal")
		}
		if len(c.args) == 2 {
			if _, ok := c.args[1].(*numLit); !ok {
				return fmt.Errorf("seqid() width must be a number literal")
			}
		}
	}
	return nil
}

// spreadValues evaluates arguments, expanding slot-group identifiers into the
// values of their populated slots.
func spreadValues(env *evalEnv, args []node) []Value {
	var out []Value
	for _, a := range args {
		if id, ok := a.(*identNode); ok && env.groups[id.name] != nil {
			for _, e := range env.slots[id.name] {
				out = append(out, e.Value)
			}
			continue
		}
		out = append(out, a.eval(env))
	}
	return out
}

func numbers(vals []Value) []decimal.Decimal {
	var out []decimal.Decimal
	for _, v := range vals {
		if v.IsNumber() {
			out = append(out, v.Num)
		}
	}
	return out
}

func fnSum(env *evalEnv, args []node) Value {
	nums := numbers(spreadValues(env, args))
	if len(nums) == 0 {
		return Blank()
	}
	return Number(decimal.Sum(decimal.Zero, nums...))
}

// fnCount counts non-blank values; for a slot group that is the number of
// populated slots, whether or not their value is filled in.
func fnCount(env *evalEnv, args []node) Value {
	var n int64
	for _, a := range args {
		if id, ok := a.(*identNode); ok && env.groups[id.name] != nil {
			n += int64(len(env.slots[id.name]))
			continue
		}
		if !a.eval(env).IsBlank() {
			n++
		}
	}
	return NumberFromInt(n)
}

func fnAvg(env *evalEnv, args []node) Value {
	nums := numbers(spreadValues(env, args))
	if len(nums) == 0 {
		return env.fail("average of no values", NumberFromInt(0))
	}
	return Number(decimal.Avg(nums[0], nums[1:]...))
}

func fnExtreme(sign int) func(*evalEnv, []node) Value {
	return func(env *evalEnv, args []node) Value {
		nums := numbers(spreadValues(env, args))
		if len(nums) == 0 {
			return Blank()
		}
		best := nums[0]
		for _, d := range nums[1:] {
			if d.Cmp(best) == sign {
				best = d
			}
		}
		return Number(best)
	}
}

func fnCoalesce(env *evalEnv, args []node) Value {
	for _, a := range args {
		if v := a.eval(env); !v.IsBlank() {
			return v
		}
	}
	return Blank()
}

func fnIf(env *evalEnv, args []node) Value {
	if args[0].eval(env).Truthy() {
		return args[1].eval(env)
	}
	return args[2].eval(env)
}

func fnIsBlank(env *evalEnv, args []node) Value {
	return boolValue(args[0].eval(env).IsBlank())
}

// fnRound rounds half away from zero, like a spreadsheet ROUND.
func fnRound(env *evalEnv, args []node) Value {
	x := args[0].eval(env)
	if x.IsBlank() {
		return x
	}
	if !x.IsNumber() {
		return env.fail("round of non-numeric value", Blank())
	}
	var places int32
	if len(args) == 2 {
		p := args[1].eval(env)
		if !p.IsNumber() {
			return env.fail("round places must be a number", x)
		}
		places = int32(p.Num.IntPart())
	}
	return Number(x.Num.Round(places))
}

func fnAnd(env *evalEnv, args []node) Value {
	for _, a := range args {
		if !a.eval(env).Truthy() {
			return boolValue(false)
		}
	}
	return boolValue(true)
}

func fnOr(env *evalEnv, args []node) Value {
	for _, a := range args {
		if a.eval(env).Truthy() {
			return boolValue(true)
		}
	}
	return boolValue(false)
}

func fnNot(env *evalEnv, args []node) Value {
	return boolValue(!args[0].eval(env).Truthy())
}

func fnSeqID(env *evalEnv, args []node) Value {
	prefix := args[0].(*strLit).val
	width := 4
	if len(args) == 2 {
		width = int(args[1].(*numLit).val.IntPart())
	}
	return Text(FormatKey(prefix, env.seq, width))
}
