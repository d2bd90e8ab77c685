package runner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a user command understood by the Runner.
type Action string

const (
	ActionAdvance  Action = "advance"
	ActionBack     Action = "back"
	ActionResubmit Action = "resubmit"
	ActionReset    Action = "reset"
	ActionRefresh  Action = "refresh"
	ActionQuit     Action = "quit"
)

// Command is one parsed line of user input.
type Command struct {
	Action Action         `json:"action"`
	Input  map[string]any `json:"input,omitempty"`
}

var aliases = map[string]Action{
	"":         ActionAdvance,
	"n":        ActionAdvance,
	"next":     ActionAdvance,
	"advance":  ActionAdvance,
	"b":        ActionBack,
	"back":     ActionBack,
	"resubmit": ActionResubmit,
	"retry":    ActionResubmit,
	"reset":    ActionReset,
	"r":        ActionRefresh,
	"refresh":  ActionRefresh,
	"q":        ActionQuit,
	"quit":     ActionQuit,
	"exit":     ActionQuit,
}

// listKeys always decode to lists, even with a single value.
var listKeys = map[string]bool{
	"data_sources":   true,
	"business_rules": true,
}

// ParseCommand interprets a line of text.
//
// Bare words select an action ("back", "resubmit", ...); an empty line
// advances with the input already recorded. A JSON object, or a list of
// key=value fields separated by ";", advances with that input:
//
//	data_sources=zip_territory,iqvia_xpo_rx; use_case=Segmentation; business_rules=Exclude inactive HCPs
//
// data_sources is split on commas. Repeating a key appends to its list.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if act, ok := aliases[strings.ToLower(line)]; ok {
		return Command{Action: act}, nil
	}
	if strings.HasPrefix(line, "{") {
		var in map[string]any
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return Command{}, fmt.Errorf("invalid JSON input: %w", err)
		}
		return Command{Action: ActionAdvance, Input: in}, nil
	}
	if strings.Contains(line, "=") {
		in, err := parseFields(line)
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionAdvance, Input: in}, nil
	}
	return Command{}, fmt.Errorf("unrecognized command %q", line)
}

func parseFields(line string) (map[string]any, error) {
	in := map[string]any{}
	for _, field := range strings.Split(line, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, val, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		val = strings.TrimSpace(val)

		var vals []string
		if key == "data_sources" {
			for _, v := range strings.Split(val, ",") {
				if v = strings.TrimSpace(v); v != "" {
					vals = append(vals, v)
				}
			}
		} else {
			vals = []string{val}
		}

		prev, seen := in[key]
		switch {
		case listKeys[key] || seen:
			var list []any
			switch p := prev.(type) {
			case []any:
				list = p
			case string:
				list = []any{p}
			}
			for _, v := range vals {
				list = append(list, v)
			}
			if list == nil {
				list = []any{}
			}
			in[key] = list
		default:
			in[key] = val
		}
	}
	return in, nil
}
