// Package realtime fans row change events out to change feed subscribers.
package realtime

import (
	"fmt"
	"strings"

	mqcontracts "carecircle/contracts/mq"
)

const (
	OpEq  = "eq"
	OpNeq = "neq"
)

// Filter 形如 column=op.value，空 Filter 匹配整张表
type Filter struct {
	Column string
	Op     string
	Value  string
}

// ParseFilter 解析 "user_id=eq.<uuid>"
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Filter{}, nil
	}

	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: want column=op.value", s)
	}
	op, value, ok := strings.Cut(rest, ".")
	if !ok || value == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: want column=op.value", s)
	}
	if op != OpEq && op != OpNeq {
		return Filter{}, fmt.Errorf("unsupported filter operator %q", op)
	}
	return Filter{Column: column, Op: op, Value: value}, nil
}

func (f Filter) IsZero() bool {
	return f.Column == ""
}

func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=" + f.Op + "." + f.Value
}

// Matches 事件里没有该列时，eq 不匹配，neq 匹配
func (f Filter) Matches(ev mqcontracts.ChangeEvent) bool {
	if f.IsZero() {
		return true
	}
	v, ok := ev.Keys[f.Column]
	switch f.Op {
	case OpEq:
		return ok && v == f.Value
	case OpNeq:
		return !ok || v != f.Value
	}
	return false
}
