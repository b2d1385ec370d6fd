package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// listValue is a repeatable flag. Each occurrence may also carry several
// values separated by semicolons, the editor's own list syntax.
type listValue struct {
	values *[]string
}

func newListValue(target *[]string) *listValue {
	return &listValue{values: target}
}

func (l *listValue) String() string {
	if l.values == nil {
		return ""
	}
	return strings.Join(*l.values, ";")
}

func (l *listValue) Set(value string) error {
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			*l.values = append(*l.values, part)
		}
	}
	return nil
}

func (l *listValue) Type() string { return "list" }

var _ pflag.Value = (*listValue)(nil)
