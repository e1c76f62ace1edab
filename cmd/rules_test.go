package cmd

import (
	"testing"

	"github.com/emailzen/emailzen/internal/rules"
)

func TestDescribeActions(t *testing.T) {
	tests := []struct {
		name     string
		actions  rules.Actions
		expected string
	}{
		{
			name:     "no actions",
			actions:  rules.Actions{},
			expected: "none",
		},
		{
			name:     "label only",
			actions:  rules.Actions{Label: "Shop"},
			expected: `label "Shop"`,
		},
		{
			name:     "mark read and archive",
			actions:  rules.Actions{MarkRead: true, Archive: true},
			expected: "mark read, archive",
		},
		{
			name: "all actions",
			actions: rules.Actions{
				Label:         "News",
				MarkRead:      true,
				Archive:       true,
				RetentionDays: 30,
			},
			expected: `label "News", mark read, archive, trash after 30 days`,
		},
		{
			name:     "retention only",
			actions:  rules.Actions{RetentionDays: 7},
			expected: "trash after 7 days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeActions(tt.actions); got != tt.expected {
				t.Errorf("describeActions(%+v) = %q, want %q", tt.actions, got, tt.expected)
			}
		})
	}
}
