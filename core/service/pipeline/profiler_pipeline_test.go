package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
	"mailprofiler/core/port/out"
	"mailprofiler/core/service/classification"
	"mailprofiler/core/service/consolidation"
	"mailprofiler/core/service/extraction"
)

// touchyScorer panics on poisoned bodies and scores everything else flat.
type touchyScorer struct{}

func (touchyScorer) Polarity(_ context.Context, text string) (float64, error) {
	if strings.Contains(text, "poison") {
		panic("poisoned message")
	}
	return 0.2, nil
}

func testPipeline(t *testing.T, workers int, caps *out.Capabilities) *Pipeline {
	t.Helper()
	classifier, err := classification.New(classification.Config{
		Patterns: map[domain.Category][]classification.PatternWeight{
			domain.CategoryFormal: {{Pattern: `\bdear\b`, Weight: 2, Label: "salutation"}},
			domain.CategoryCasual: {{Pattern: `\bhey\b`, Weight: 2, Label: "greeting"}},
		},
	})
	if err != nil {
		t.Fatalf("classification.New() error = %v", err)
	}
	extractor := extraction.NewExtractor(extraction.DefaultConfig(), classifier, caps, zerolog.Nop())
	consolidator := consolidation.New(consolidation.DefaultConfig(), zerolog.Nop())

	cfg := DefaultConfig()
	cfg.Workers = workers
	return New(cfg, extractor, consolidator, nil, zerolog.Nop())
}

func batch(n int) []*domain.RawMessage {
	msgs := make([]*domain.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		addr := fmt.Sprintf("sender%d@acme.com", i%5)
		msgs = append(msgs, &domain.RawMessage{
			ID:          fmt.Sprintf("m%d", i),
			From:        addr,
			FromAddress: addr,
			To:          []string{"team@acme.com"},
			Subject:     "status",
			Body:        "hey, quick update on the rollout",
			Words:       6,
			ReceivedAt:  time.Date(2026, time.March, 2, 9+i%8, 0, 0, 0, time.UTC),
		})
	}
	return msgs
}

func TestRunEmptyBatch(t *testing.T) {
	p := testPipeline(t, 4, &out.Capabilities{})

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(result.Profiles) != 0 || result.Stats.Messages != 0 {
		t.Errorf("result = %+v, want an empty run", result.Stats)
	}
}

func TestRunGroupsByIdentity(t *testing.T) {
	p := testPipeline(t, 4, &out.Capabilities{})

	result, err := p.Run(context.Background(), batch(20))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Stats.Messages != 20 {
		t.Errorf("Stats.Messages = %d, want 20", result.Stats.Messages)
	}
	if len(result.Profiles) != 5 {
		t.Fatalf("profiles = %d, want 5 identities", len(result.Profiles))
	}
	for i, profile := range result.Profiles {
		if profile.Messages != 4 {
			t.Errorf("profiles[%d].Messages = %d, want 4", i, profile.Messages)
		}
	}
	// Output rows are sorted by identity.
	for i := 1; i < len(result.Profiles); i++ {
		if result.Profiles[i-1].Identity >= result.Profiles[i].Identity {
			t.Errorf("profiles out of order: %s before %s",
				result.Profiles[i-1].Identity, result.Profiles[i].Identity)
		}
	}
}

func TestRunWorkerCountDoesNotChangeOutput(t *testing.T) {
	msgs := batch(40)

	serial, err := testPipeline(t, 1, &out.Capabilities{}).Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("serial Run() error = %v", err)
	}
	parallel, err := testPipeline(t, 8, &out.Capabilities{}).Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("parallel Run() error = %v", err)
	}

	if !reflect.DeepEqual(serial.Profiles, parallel.Profiles) {
		t.Error("profiles differ between 1 and 8 workers")
	}
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	p := testPipeline(t, 8, &out.Capabilities{})
	msgs := batch(30)

	baseline, err := p.Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := p.Run(context.Background(), msgs)
		if err != nil {
			t.Fatalf("run %d error = %v", i, err)
		}
		if !reflect.DeepEqual(got.Profiles, baseline.Profiles) {
			t.Fatalf("run %d diverged from baseline", i)
		}
	}
}

func TestRunContainsPoisonedMessage(t *testing.T) {
	p := testPipeline(t, 4, &out.Capabilities{Sentiment: touchyScorer{}})

	msgs := batch(10)
	msgs[2].Body = "this one is poison"

	result, err := p.Run(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Run() error = %v, a bad message must not fail the batch", err)
	}
	if result.Stats.FailedMessages != 1 {
		t.Errorf("FailedMessages = %d, want 1", result.Stats.FailedMessages)
	}
	if len(result.Profiles) != 5 {
		t.Errorf("profiles = %d, want all 5 identities emitted", len(result.Profiles))
	}

	// The poisoned sender still gets a row with the message counted.
	var poisoned *domain.ConsolidatedProfile
	for i := range result.Profiles {
		if result.Profiles[i].Identity == "sender2@acme.com" {
			poisoned = &result.Profiles[i]
		}
	}
	if poisoned == nil {
		t.Fatal("poisoned sender missing from the table")
	}
	if poisoned.Messages != 2 {
		t.Errorf("poisoned sender messages = %d, want 2", poisoned.Messages)
	}
}

func TestRunCancelled(t *testing.T) {
	p := testPipeline(t, 2, &out.Capabilities{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, batch(10))
	if err == nil {
		t.Fatal("Run() error = nil, want context error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
