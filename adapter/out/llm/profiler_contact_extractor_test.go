package llm

import (
	"context"
	"testing"
	"time"

	"mailprofiler/core/port/out"
	"mailprofiler/pkg/cache"
)

func TestParseContact(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    out.ContactInfo
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"name":"Jane Doe","title":"CTO","company":"Acme","phone":"+1 650-253-0000"}`,
			want: out.ContactInfo{Name: "Jane Doe", Title: "CTO", Company: "Acme", Phone: "+1 650-253-0000"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"name\":\"Jane Doe\"}\n```",
			want: out.ContactInfo{Name: "Jane Doe"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"company\":\"Acme\"}\n```",
			want: out.ContactInfo{Company: "Acme"},
		},
		{
			name: "null fields",
			raw:  `{"name":"Jane Doe","title":null,"company":null,"phone":null}`,
			want: out.ContactInfo{Name: "Jane Doe"},
		},
		{
			name:    "not json",
			raw:     "I could not find any contact details.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContact(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseContact() error = nil, want parse failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseContact() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("parseContact() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestContactKey(t *testing.T) {
	a := contactKey("subj", "body", "sig")
	if a != contactKey("subj", "body", "sig") {
		t.Error("contactKey() is not deterministic")
	}
	if a == contactKey("subj", "bodysig", "") {
		t.Error("contactKey() must separate fields, not just concatenate")
	}
}

func TestExtractContactServedFromCache(t *testing.T) {
	ctx := context.Background()
	memo := cache.NewMemory(16)
	e := NewExtractor(Config{APIKey: "unused"}, memo)

	want := out.ContactInfo{Name: "Jane Doe", Company: "Acme"}
	key := contactKey("Hello", "body text", "Jane Doe\nAcme Corp")
	if err := memo.SetJSON(ctx, key, want, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	// A cache hit must return before any network call is attempted.
	got, err := e.ExtractContact(ctx, "Hello", "body text", "Jane Doe\nAcme Corp")
	if err != nil {
		t.Fatalf("ExtractContact() error = %v", err)
	}
	if *got != want {
		t.Errorf("ExtractContact() = %+v, want %+v", *got, want)
	}
}

func TestNewExtractorDefaults(t *testing.T) {
	e := NewExtractor(Config{APIKey: "k"}, nil)
	if e.model != DefaultModel {
		t.Errorf("model = %q, want %q", e.model, DefaultModel)
	}
	if e.maxTokens != 256 {
		t.Errorf("maxTokens = %d, want 256", e.maxTokens)
	}
	if e.cacheTTL != 30*24*time.Hour {
		t.Errorf("cacheTTL = %v, want 720h", e.cacheTTL)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate() = %q, want %q", got, "abcd")
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate() = %q, want %q", got, "abc")
	}
}
