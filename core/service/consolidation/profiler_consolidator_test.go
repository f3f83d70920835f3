package consolidation

import (
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
)

func testConsolidator() *Consolidator {
	return New(DefaultConfig(), zerolog.Nop())
}

func slot(wd time.Weekday, hour int, business, weekend bool) domain.TimeSlot {
	return domain.TimeSlot{
		Weekday:         wd,
		Hour:            hour,
		IsBusinessHours: business,
		IsWeekend:       weekend,
		Valid:           true,
	}
}

// =============================================================================
// Merge laws
// =============================================================================

func TestModeValue(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
		wantOK bool
	}{
		{"empty", nil, "", false},
		{"single", []string{"a"}, "a", true},
		{"majority", []string{"a", "b", "b"}, "b", true},
		{"tie first seen", []string{"engineer", "senior engineer"}, "engineer", true},
		{"tie order matters", []string{"senior engineer", "engineer"}, "senior engineer", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := modeValue(tt.values)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("modeValue(%v) = %q/%v, want %q/%v", tt.values, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMergeSignalsIdempotent(t *testing.T) {
	in := domain.NewSignal("Jane Doe", 0.6, domain.SourceSender)
	got := mergeSignals([]domain.Signal{in})
	if got != in {
		t.Errorf("mergeSignals(single) = %+v, want unchanged %+v", got, in)
	}
}

func TestMergeSignalsModeWithBestConfidence(t *testing.T) {
	signals := []domain.Signal{
		domain.NewSignal("Engineer", 0.5, domain.SourceBody),
		domain.NewSignal("Senior Engineer", 0.9, domain.SourceSignature),
		domain.NewSignal("Engineer", 0.7, domain.SourceSignature),
	}
	got := mergeSignals(signals)
	if got.Value != "Engineer" {
		t.Fatalf("value = %q, want the most frequent Engineer", got.Value)
	}
	if got.Confidence != 0.7 || got.Source != domain.SourceSignature {
		t.Errorf("merged = %+v, want confidence 0.7 from signature", got)
	}
}

func TestMergeSignalsTieTakesFirstSeen(t *testing.T) {
	signals := []domain.Signal{
		domain.NewSignal("Engineer", 0.5, domain.SourceBody),
		domain.NewSignal("Senior Engineer", 0.6, domain.SourceSignature),
	}
	got := mergeSignals(signals)
	if got.Value != "Engineer" || got.Confidence != 0.5 || got.Source != domain.SourceBody {
		t.Errorf("merged = %+v, want Engineer/0.5/body by first occurrence", got)
	}
}

func TestSetUnionCommutative(t *testing.T) {
	want := []string{"de", "en", "fr"}
	ab := setUnion([][]string{{"en", "fr"}, {"fr", "de"}})
	ba := setUnion([][]string{{"fr", "de"}, {"en", "fr"}})
	if !reflect.DeepEqual(ab, want) || !reflect.DeepEqual(ba, want) {
		t.Errorf("setUnion orders = %v / %v, want %v both ways", ab, ba, want)
	}
}

func TestSetUnionNormalizes(t *testing.T) {
	got := setUnion([][]string{{" EN ", "en"}, {"", "De"}})
	want := []string{"de", "en"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("setUnion() = %v, want %v", got, want)
	}
	if setUnion(nil) != nil {
		t.Error("setUnion(nil) should be nil")
	}
}

func TestFrequencyRanked(t *testing.T) {
	tests := []struct {
		name   string
		groups [][]string
		limit  int
		want   []string
	}{
		{
			"by count",
			[][]string{{"go", "rust"}, {"go", "python"}, {"python", "go"}},
			10,
			[]string{"go", "python", "rust"},
		},
		{
			"tie first seen",
			[][]string{{"alpha"}, {"beta"}, {"alpha"}, {"beta"}},
			10,
			[]string{"alpha", "beta"},
		},
		{
			"limit caps",
			[][]string{{"a", "b", "c"}},
			2,
			[]string{"a", "b"},
		},
		{"empty", nil, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frequencyRanked(tt.groups, tt.limit); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("frequencyRanked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeTimeline(t *testing.T) {
	timeline, err := mergeTimeline([]domain.TimeSlot{
		slot(time.Monday, 9, true, false),
		slot(time.Monday, 21, false, false),
		slot(time.Tuesday, 13, true, false),
	})
	if err != nil {
		t.Fatalf("mergeTimeline() error = %v", err)
	}
	if timeline.TypicalWeekday != time.Monday {
		t.Errorf("TypicalWeekday = %v, want Monday", timeline.TypicalWeekday)
	}
	if timeline.TypicalHour != 13 {
		t.Errorf("TypicalHour = %d, want median 13", timeline.TypicalHour)
	}
	if !timeline.BusinessHours {
		t.Error("BusinessHours = false, want true for a 2/3 majority")
	}
	if timeline.WeekendSender {
		t.Error("WeekendSender = true, want false")
	}
	if timeline.Observations != 3 {
		t.Errorf("Observations = %d, want 3", timeline.Observations)
	}
}

func TestMergeTimelineLowerMedian(t *testing.T) {
	timeline, err := mergeTimeline([]domain.TimeSlot{
		slot(time.Monday, 13, true, false),
		slot(time.Monday, 9, true, false),
	})
	if err != nil {
		t.Fatalf("mergeTimeline() error = %v", err)
	}
	if timeline.TypicalHour != 9 {
		t.Errorf("TypicalHour = %d, want lower median 9", timeline.TypicalHour)
	}
}

func TestMergeTimelineBooleanTieIsTrue(t *testing.T) {
	timeline, err := mergeTimeline([]domain.TimeSlot{
		slot(time.Saturday, 10, false, true),
		slot(time.Monday, 10, true, false),
	})
	if err != nil {
		t.Fatalf("mergeTimeline() error = %v", err)
	}
	if !timeline.BusinessHours || !timeline.WeekendSender {
		t.Errorf("tied booleans = %v/%v, want true/true",
			timeline.BusinessHours, timeline.WeekendSender)
	}
}

func TestMergeTimelineSkipsInvalidSlots(t *testing.T) {
	timeline, err := mergeTimeline([]domain.TimeSlot{
		{},
		slot(time.Friday, 15, true, false),
	})
	if err != nil {
		t.Fatalf("mergeTimeline() error = %v", err)
	}
	if timeline.Observations != 1 || timeline.TypicalWeekday != time.Friday {
		t.Errorf("timeline = %+v, want one Friday observation", timeline)
	}

	if _, err := mergeTimeline(nil); err != nil {
		t.Errorf("mergeTimeline(nil) error = %v, want nil", err)
	}
}

func TestMergeTimelineRejectsMalformedSlot(t *testing.T) {
	bad := domain.TimeSlot{Weekday: time.Monday, Hour: 99, Valid: true}
	if _, err := mergeTimeline([]domain.TimeSlot{bad}); err == nil {
		t.Error("mergeTimeline() should reject an out-of-range hour")
	}
}

func TestMergeSentimentPriorityTie(t *testing.T) {
	labels := []domain.SentimentLabel{
		domain.SentimentPositive,
		domain.SentimentNeutral,
		domain.SentimentPositive,
		domain.SentimentNeutral,
	}
	got, err := mergeSentiment(labels, domain.DefaultSentimentPriority)
	if err != nil {
		t.Fatalf("mergeSentiment() error = %v", err)
	}
	if got != domain.SentimentPositive {
		t.Errorf("mergeSentiment() = %q, want positive on a tie", got)
	}
}

func TestMergeSentimentRejectsUnknownLabel(t *testing.T) {
	if _, err := mergeSentiment([]domain.SentimentLabel{"ecstatic"}, domain.DefaultSentimentPriority); err == nil {
		t.Error("mergeSentiment() should reject an unrecognized label")
	}
}

// =============================================================================
// Consolidation
// =============================================================================

func TestConsolidateEndToEnd(t *testing.T) {
	c := testConsolidator()
	first := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)  // Monday
	second := time.Date(2026, time.March, 2, 13, 30, 0, 0, time.UTC)

	results := []domain.ExtractionResult{
		{
			MessageID: "m1",
			Identity:  "alice@acme.com",
			Category:  domain.CategoryFormal,
			Fields: map[domain.Field]domain.Signal{
				domain.FieldTitle: domain.NewSignal("Engineer", 0.5, domain.SourceBody),
				domain.FieldName:  domain.NewSignal("Alice", 0.8, domain.SourceSignature),
			},
			Sentiment:  domain.NewSignal(string(domain.SentimentPositive), 0.9, domain.SourceBody),
			Languages:  []string{"en", "fr"},
			Topics:     []string{"launch", "roadmap"},
			Recipients: []string{"bob@corp.com"},
			Slot:       slot(time.Monday, 9, true, false),
			ReceivedAt: first,
		},
		{
			MessageID: "m2",
			Identity:  "alice@acme.com",
			Category:  domain.CategoryFormal,
			Fields: map[domain.Field]domain.Signal{
				domain.FieldTitle: domain.NewSignal("Senior Engineer", 0.6, domain.SourceSignature),
			},
			Sentiment:  domain.NewSignal(string(domain.SentimentNeutral), 0.8, domain.SourceBody),
			Languages:  []string{"fr", "de"},
			Topics:     []string{"roadmap"},
			Recipients: []string{"carol@corp.com", "bob@corp.com"},
			Slot:       slot(time.Monday, 13, true, false),
			ReceivedAt: second,
		},
	}

	profiles := c.Consolidate(results)
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles))
	}
	p := profiles[0]

	if p.Identity != "alice@acme.com" || p.Messages != 2 {
		t.Errorf("identity/messages = %s/%d, want alice@acme.com/2", p.Identity, p.Messages)
	}
	if !p.FirstSeen.Equal(first) || !p.LastSeen.Equal(second) {
		t.Errorf("seen range = %v..%v, want %v..%v", p.FirstSeen, p.LastSeen, first, second)
	}
	if p.Category != domain.CategoryFormal {
		t.Errorf("category = %q, want formal", p.Category)
	}

	title := p.Field(domain.FieldTitle)
	if title.Value != "Engineer" || title.Confidence != 0.5 {
		t.Errorf("title = %+v, want first-seen Engineer/0.5", title)
	}
	name := p.Field(domain.FieldName)
	if name.Value != "Alice" || name.Confidence != 0.8 {
		t.Errorf("name = %+v, want Alice/0.8", name)
	}

	if p.Sentiment != domain.SentimentPositive {
		t.Errorf("sentiment = %q, want positive on the tie", p.Sentiment)
	}
	if want := []string{"de", "en", "fr"}; !reflect.DeepEqual(p.Languages, want) {
		t.Errorf("languages = %v, want %v", p.Languages, want)
	}
	if want := []string{"roadmap", "launch"}; !reflect.DeepEqual(p.Topics, want) {
		t.Errorf("topics = %v, want %v", p.Topics, want)
	}
	if want := []string{"bob@corp.com", "carol@corp.com"}; !reflect.DeepEqual(p.Network, want) {
		t.Errorf("network = %v, want %v", p.Network, want)
	}
	if p.Timeline.TypicalWeekday != time.Monday || p.Timeline.TypicalHour != 9 {
		t.Errorf("timeline = %+v, want Monday/9", p.Timeline)
	}
	if len(p.Errors) != 0 {
		t.Errorf("errors = %v, want none", p.Errors)
	}
}

func TestConsolidateSortsByIdentity(t *testing.T) {
	c := testConsolidator()
	results := []domain.ExtractionResult{
		{Identity: "zed@x.com", Category: domain.CategoryCasual},
		{Identity: "alice@x.com", Category: domain.CategoryCasual},
		{Identity: "bob@x.com", Category: domain.CategoryCasual},
		{Identity: "alice@x.com", Category: domain.CategoryCasual},
	}
	profiles := c.Consolidate(results)

	want := []domain.Identity{"alice@x.com", "bob@x.com", "zed@x.com"}
	if len(profiles) != len(want) {
		t.Fatalf("profiles = %d, want %d", len(profiles), len(want))
	}
	for i, id := range want {
		if profiles[i].Identity != id {
			t.Errorf("profiles[%d].Identity = %s, want %s", i, profiles[i].Identity, id)
		}
	}
	if profiles[0].Messages != 2 {
		t.Errorf("alice messages = %d, want 2", profiles[0].Messages)
	}
}

func TestConsolidateFailedResultsCountOnly(t *testing.T) {
	c := testConsolidator()
	received := time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)
	results := []domain.ExtractionResult{
		{
			Identity: "bob@x.com",
			Category: domain.CategoryFormal,
			Fields: map[domain.Field]domain.Signal{
				domain.FieldName: domain.NewSignal("Bob", 0.6, domain.SourceSender),
			},
		},
		{
			Identity:   "bob@x.com",
			Category:   domain.DefaultCategory,
			Failed:     true,
			ReceivedAt: received,
		},
	}
	profiles := c.Consolidate(results)
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles))
	}
	p := profiles[0]

	if p.Messages != 2 {
		t.Errorf("Messages = %d, want failed results counted", p.Messages)
	}
	// The failed result must not drag the category toward the default.
	if p.Category != domain.CategoryFormal {
		t.Errorf("category = %q, want formal from the live result only", p.Category)
	}
	if !p.FirstSeen.Equal(received) {
		t.Errorf("FirstSeen = %v, want the failed message's date %v", p.FirstSeen, received)
	}
}

func TestConsolidateAggregationErrorIsScoped(t *testing.T) {
	c := testConsolidator()
	results := []domain.ExtractionResult{
		{
			Identity: "eve@x.com",
			Category: "gibberish",
			Fields: map[domain.Field]domain.Signal{
				domain.FieldName: domain.NewSignal("Eve", 0.6, domain.SourceSender),
			},
		},
		{Identity: "frank@x.com", Category: domain.CategoryCasual},
	}
	profiles := c.Consolidate(results)
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}

	eve := profiles[0]
	if eve.Category != "" {
		t.Errorf("eve category = %q, want empty after merge failure", eve.Category)
	}
	if len(eve.Errors) != 1 || eve.Errors[0].Field != domain.FieldCategory {
		t.Fatalf("eve errors = %v, want one scoped to category", eve.Errors)
	}
	if name := eve.Field(domain.FieldName); name.Value != "Eve" {
		t.Errorf("eve name = %+v, the other fields must still merge", name)
	}

	frank := profiles[1]
	if frank.Category != domain.CategoryCasual || len(frank.Errors) != 0 {
		t.Errorf("frank = %q/%v, other identities must be unaffected", frank.Category, frank.Errors)
	}
}

func TestConsolidateAllNullRowStillEmitted(t *testing.T) {
	c := testConsolidator()
	profiles := c.Consolidate([]domain.ExtractionResult{
		{Identity: "ghost@x.com", Category: domain.DefaultCategory},
	})
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles))
	}
	p := profiles[0]
	if p.Messages != 1 || len(p.Fields) != 0 {
		t.Errorf("profile = %+v, want an empty row with one message", p)
	}
	if p.Timeline.Observations != 0 {
		t.Errorf("Observations = %d, want 0", p.Timeline.Observations)
	}
}

func TestConsolidateDeterministicAcrossRuns(t *testing.T) {
	c := testConsolidator()
	results := []domain.ExtractionResult{
		{
			Identity:  "alice@x.com",
			Category:  domain.CategoryFormal,
			Languages: []string{"en"},
			Topics:    []string{"alpha", "beta"},
		},
		{
			Identity:  "alice@x.com",
			Category:  domain.CategoryCasual,
			Languages: []string{"de"},
			Topics:    []string{"beta"},
		},
	}
	baseline := c.Consolidate(results)
	for i := 0; i < 50; i++ {
		if got := c.Consolidate(results); !reflect.DeepEqual(got, baseline) {
			t.Fatalf("run %d diverged from baseline", i)
		}
	}
}
