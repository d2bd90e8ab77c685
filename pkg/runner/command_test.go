package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand_Actions(t *testing.T) {
	cases := map[string]Action{
		"":          ActionAdvance,
		"  next ":   ActionAdvance,
		"BACK":      ActionBack,
		"b":         ActionBack,
		"resubmit":  ActionResubmit,
		"retry":     ActionResubmit,
		"reset":     ActionReset,
		"r":         ActionRefresh,
		"q":         ActionQuit,
		"exit":      ActionQuit,
	}
	for line, want := range cases {
		cmd, err := ParseCommand(line)
		require.NoError(t, err, line)
		assert.Equal(t, want, cmd.Action, line)
		assert.Nil(t, cmd.Input, line)
	}
}

func TestParseCommand_Fields(t *testing.T) {
	cmd, err := ParseCommand("data_sources=zip_territory, iqvia_xpo_rx; use_case=Field Reporting; business_rules=Exclude inactive HCPs; business_rules=Only US, Canada")
	require.NoError(t, err)

	assert.Equal(t, ActionAdvance, cmd.Action)
	assert.Equal(t, map[string]any{
		"data_sources":   []any{"zip_territory", "iqvia_xpo_rx"},
		"use_case":       "Field Reporting",
		"business_rules": []any{"Exclude inactive HCPs", "Only US, Canada"},
	}, cmd.Input)
}

func TestParseCommand_SingleListValue(t *testing.T) {
	cmd, err := ParseCommand("data_sources=zip_territory;use_case=Segmentation")
	require.NoError(t, err)
	assert.Equal(t, []any{"zip_territory"}, cmd.Input["data_sources"])
	assert.Equal(t, "Segmentation", cmd.Input["use_case"])
}

func TestParseCommand_RepeatedScalar(t *testing.T) {
	cmd, err := ParseCommand("note=a; note=b")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, cmd.Input["note"])
}

func TestParseCommand_JSON(t *testing.T) {
	cmd, err := ParseCommand(`{"data_sources":["zip_territory"],"use_case":"Segmentation"}`)
	require.NoError(t, err)
	assert.Equal(t, "Segmentation", cmd.Input["use_case"])

	_, err = ParseCommand(`{"broken"`)
	assert.Error(t, err)
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{"launch", "=value; use_case=x"} {
		_, err := ParseCommand(line)
		assert.Error(t, err, line)
	}
}
