package mailbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// crlf rewrites fixture line endings to the wire format.
func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

var plainEML = crlf(`From: Jane Doe <jane.doe@acme.com>
To: Bob <bob@example.org>
Subject: Quarterly numbers
Date: Tue, 12 Mar 2024 14:30:00 +0100
Received: from mail.acme.com (mail.acme.com [203.0.113.9]) by mx.example.org
Received: from internal (10.0.0.5) by mail.acme.com
Content-Type: text/plain; charset=utf-8

Hi Bob,

The numbers look great.

Best regards,
Jane Doe
Senior Analyst
`)

var multipartEML = crlf(`From: ops@example.net
To: me@example.org
Subject: =?utf-8?q?Caf=C3=A9_update?=
Date: Mon, 03 Jun 2024 09:15:00 -0700
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="deadbeef"

--deadbeef
Content-Type: text/plain; charset=utf-8

Plain wins.

Cheers,
Ops
--deadbeef
Content-Type: text/html; charset=utf-8

<html><body><p>HTML loses.</p></body></html>
--deadbeef--
`)

var htmlOnlyEML = crlf(`From: noreply@shop.example
Subject: Receipt
Content-Type: text/html; charset=utf-8

<html><head><style>p { color: red; }</style></head><body><p>Thank you for your order, Sam &amp; co.</p><br><div>Total: 42</div></body></html>
`)

var brokenEML = crlf(`this line is not a header

and this never parses
`)

func TestParsePlainMessage(t *testing.T) {
	msg, err := NewLoader().parse(strings.NewReader(plainEML))
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}

	if msg.FromName != "Jane Doe" {
		t.Errorf("FromName = %q, want %q", msg.FromName, "Jane Doe")
	}
	if msg.FromAddress != "jane.doe@acme.com" {
		t.Errorf("FromAddress = %q, want %q", msg.FromAddress, "jane.doe@acme.com")
	}
	if got := string(msg.Identity()); got != "jane.doe@acme.com" {
		t.Errorf("Identity() = %q, want %q", got, "jane.doe@acme.com")
	}
	if msg.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "Quarterly numbers")
	}
	if len(msg.To) != 1 || msg.To[0] != "bob@example.org" {
		t.Errorf("To = %v, want [bob@example.org]", msg.To)
	}
	if msg.ReceivedAt.IsZero() {
		t.Error("ReceivedAt is zero, want parsed Date header")
	}
	if msg.ReceivedAt.Hour() != 14 {
		t.Errorf("ReceivedAt.Hour() = %d, want 14", msg.ReceivedAt.Hour())
	}
	if msg.ID == "" {
		t.Error("ID is empty, want a generated id")
	}

	received := msg.Header("Received")
	if !strings.Contains(received, "203.0.113.9") || !strings.Contains(received, "10.0.0.5") {
		t.Errorf("Received header %q missing a transport hop", received)
	}

	wantSig := "Best regards,\nJane Doe\nSenior Analyst"
	if msg.Signature != wantSig {
		t.Errorf("Signature = %q, want %q", msg.Signature, wantSig)
	}
	if msg.Words != 6 {
		t.Errorf("Words = %d, want 6 (signature excluded)", msg.Words)
	}
	if !strings.Contains(msg.Body, "Best regards") {
		t.Error("Body must keep the signature block")
	}
}

func TestParseMultipartPrefersPlain(t *testing.T) {
	msg, err := NewLoader().parse(strings.NewReader(multipartEML))
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}

	if msg.Subject != "Café update" {
		t.Errorf("Subject = %q, want decoded %q", msg.Subject, "Café update")
	}
	if !strings.Contains(msg.Body, "Plain wins.") {
		t.Errorf("Body = %q, want the text/plain part", msg.Body)
	}
	if strings.Contains(msg.Body, "HTML loses") {
		t.Errorf("Body = %q, must not contain the html alternative", msg.Body)
	}
	if !strings.HasPrefix(msg.Signature, "Cheers") {
		t.Errorf("Signature = %q, want the cheers block", msg.Signature)
	}
}

func TestParseHTMLOnlyStripsTags(t *testing.T) {
	msg, err := NewLoader().parse(strings.NewReader(htmlOnlyEML))
	if err != nil {
		t.Fatalf("parse() error: %v", err)
	}

	if !strings.Contains(msg.Body, "Thank you for your order, Sam & co.") {
		t.Errorf("Body = %q, want unescaped visible text", msg.Body)
	}
	if !strings.Contains(msg.Body, "Total: 42") {
		t.Errorf("Body = %q, want block content on its own line", msg.Body)
	}
	if strings.Contains(msg.Body, "color: red") {
		t.Errorf("Body = %q, style content must be dropped", msg.Body)
	}
	if strings.Contains(msg.Body, "<") {
		t.Errorf("Body = %q, tags must be stripped", msg.Body)
	}
	if !msg.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should stay zero without a Date header")
	}
}

func TestLoadDirSortsAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.eml", plainEML)
	writeFile(t, dir, "a.eml", multipartEML)
	writeFile(t, dir, "broken.eml", brokenEML)
	writeFile(t, dir, "notes.txt", "not mail")

	msgs, stats, err := NewLoader().LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}

	if stats.Files != 3 {
		t.Errorf("stats.Files = %d, want 3 (.txt ignored)", stats.Files)
	}
	if stats.Parsed != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want Parsed 2 Skipped 1", *stats)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Subject != "Café update" || msgs[1].Subject != "Quarterly numbers" {
		t.Errorf("subjects = [%q, %q], want filename order a before b",
			msgs[0].Subject, msgs[1].Subject)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, _, err := NewLoader().LoadDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("LoadDir() on a missing directory must error")
	}
}

var mboxFixture = `From jane@acme.com Tue Mar 12 13:30:00 2024
From: jane@acme.com
Subject: One

first body

From bob@example.org Tue Mar 12 13:31:00 2024
From: bob@example.org
Subject: Two

second body
`

func TestLoadMbox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.mbox")
	if err := os.WriteFile(path, []byte(mboxFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	msgs, stats, err := NewLoader().LoadMbox(path)
	if err != nil {
		t.Fatalf("LoadMbox() error: %v", err)
	}
	if stats.Parsed != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want Parsed 2 Skipped 0", *stats)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Subject != "One" || msgs[1].Subject != "Two" {
		t.Errorf("subjects = [%q, %q], want archive order", msgs[0].Subject, msgs[1].Subject)
	}
	if got := string(msgs[1].Identity()); got != "bob@example.org" {
		t.Errorf("second identity = %q, want bob@example.org", got)
	}
}

func TestSplitSignature(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSig   string
		wantWords int
	}{
		{
			"closing marker",
			"See the attached file.\n\nThanks,\nMona",
			"Thanks,\nMona",
			4,
		},
		{
			"dash separator",
			"short note\n--\nJohn",
			"--\nJohn",
			2,
		},
		{
			"uppercase abbreviation",
			"done\n\nBR,\nK",
			"BR,\nK",
			1,
		},
		{
			"marker too far from the end",
			"thanks\n" + strings.Repeat("word\n", 12) + "word",
			"",
			14,
		},
		{
			"no marker",
			"just a plain body with nine words in total",
			"",
			9,
		},
		{"empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, words := splitSignature(tt.body)
			if sig != tt.wantSig {
				t.Errorf("signature = %q, want %q", sig, tt.wantSig)
			}
			if words != tt.wantWords {
				t.Errorf("words = %d, want %d", words, tt.wantWords)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(`<div>Hello <b>world</b></div><script>alert(1)</script><p>Bye &amp; thanks</p>`)
	if !strings.Contains(got, "Hello world") {
		t.Errorf("stripHTML() = %q, want inline tags flattened", got)
	}
	if strings.Contains(got, "alert") {
		t.Errorf("stripHTML() = %q, script content must be dropped", got)
	}
	if !strings.Contains(got, "Bye & thanks") {
		t.Errorf("stripHTML() = %q, want entities unescaped", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
