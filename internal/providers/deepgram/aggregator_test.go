package deepgram

import "testing"

func TestTranscriptAggregatorUsesFinalsAndLastSpokenFallback(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(transcriptEvent{Kind: transcriptPartial, Text: "renewables"})
	agg.Add(transcriptEvent{Kind: transcriptFinal, Text: "renewables are cheaper"})
	agg.Add(transcriptEvent{Kind: transcriptPartial, Text: "renewables are cheaper than coal today"})

	got := agg.Raw()
	if got != "renewables are cheaper renewables are cheaper than coal today" {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

func TestTranscriptAggregatorJoinsFinals(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(transcriptEvent{Kind: transcriptFinal, Text: "first point"})
	agg.Add(transcriptEvent{Kind: transcriptFinal, Text: " second point "})
	if got := agg.Raw(); got != "first point second point" {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

func TestTranscriptAggregatorIgnoresEmpty(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(transcriptEvent{Kind: transcriptPartial, Text: "   "})
	if got := agg.Raw(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
