package query

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected Intent
	}{
		{
			name:     "plain prerequisite question",
			query:    "What are the prerequisites for COMP 250?",
			expected: IntentPrereq,
		},
		{
			name:     "what requires",
			query:    "What courses require COMP 250?",
			expected: IntentReversePrereq,
		},
		{
			name:     "what can I take after",
			query:    "What can I take after COMP 250?",
			expected: IntentReversePrereq,
		},
		{
			name:     "finished whats next",
			query:    "I finished COMP 250, what's next?",
			expected: IntentReversePrereq,
		},
		{
			name:     "chain question",
			query:    "Should I take COMP 250 before COMP 251?",
			expected: IntentPrereqChain,
		},
		{
			name:     "do I need before",
			query:    "Do I need MATH 133 before MATH 236?",
			expected: IntentPrereqChain,
		},
		{
			name:     "is required for",
			query:    "Is COMP 206 required for COMP 310?",
			expected: IntentPrereqChain,
		},
		{
			name:     "chain wins over reverse wording",
			query:    "Should I take COMP 250 before I take COMP 251?",
			expected: IntentPrereqChain,
		},
		{
			name:     "vague question defaults to prereq",
			query:    "Tell me about Operating Systems",
			expected: IntentPrereq,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIntent(tt.query); got != tt.expected {
				t.Errorf("ClassifyIntent(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestIsAskingPrereqsFor(t *testing.T) {
	positive := []string{
		"What are the prerequisites for COMP 250?",
		"prereqs for MATH 141",
		"What do I need for COMP 551?",
		"requirements for PHYS 230",
	}
	for _, q := range positive {
		if !IsAskingPrereqsFor(q) {
			t.Errorf("IsAskingPrereqsFor(%q) = false, want true", q)
		}
	}

	negative := []string{
		"What courses require COMP 250?",
		"Tell me about COMP 250",
	}
	for _, q := range negative {
		if IsAskingPrereqsFor(q) {
			t.Errorf("IsAskingPrereqsFor(%q) = true, want false", q)
		}
	}
}

func TestIsAskingWhatRequires(t *testing.T) {
	positive := []string{
		"Which courses require COMP 250?",
		"What can I take after COMP 250?",
		"I completed COMP 250, what's next?",
	}
	for _, q := range positive {
		if !IsAskingWhatRequires(q) {
			t.Errorf("IsAskingWhatRequires(%q) = false, want true", q)
		}
	}

	// "for" excludes the query even when a trigger phrase is present, so
	// "prerequisites for X" never reads as a reverse lookup.
	negative := []string{
		"What are the prerequisites for COMP 250?",
		"What do I need for COMP 551?",
		"Tell me about COMP 250",
	}
	for _, q := range negative {
		if IsAskingWhatRequires(q) {
			t.Errorf("IsAskingWhatRequires(%q) = true, want false", q)
		}
	}
}
