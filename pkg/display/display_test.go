package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

var (
	testAspects = []pod.Aspect{
		{ID: "public", Name: "Public"},
		{ID: "1", Name: "Family"},
		{ID: "2", Name: "Work colleagues"},
	}

	testServices = []pod.Service{
		{Key: "twitter", Name: "Twitter"},
		{Key: "facebook", Name: "Facebook"},
	}

	testPost = &pod.Post{
		ID:        42,
		Public:    true,
		GUID:      "abc123",
		Text:      "Hello pod",
		Permalink: "https://pod.example/posts/abc123",
	}

	testHistory = []*store.PostRecord{
		{
			GUID:      "g2",
			ID:        2,
			Text:      "Second post",
			Aspects:   []string{"1", "2"},
			Permalink: "https://pod.example/posts/g2",
			CreatedAt: time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
		},
		{
			GUID:      "g1",
			ID:        1,
			Text:      "First post",
			Public:    true,
			Permalink: "https://pod.example/posts/g1",
			CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		},
	}
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string // Type name
	}{
		{
			name:   "default format (table)",
			config: Config{},
			want:   "*display.tableFormatter",
		},
		{
			name:   "table format",
			config: Config{Format: FormatTable},
			want:   "*display.tableFormatter",
		},
		{
			name:   "json format",
			config: Config{Format: FormatJSON},
			want:   "*display.jsonFormatter",
		},
		{
			name:   "simple format",
			config: Config{Format: FormatSimple},
			want:   "*display.simpleFormatter",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			formatter := New(tt.config)
			if formatter == nil {
				t.Fatal("New() returned nil")
			}

			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"simple", FormatSimple, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnknownFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTableFormatter_FormatAspects(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{}).FormatAspects(&buf, testAspects); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Title, underline, blank, header, separator, 3 rows.
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8:\n%s", len(lines), buf.String())
	}
	if lines[3] != "ID      Name" {
		t.Errorf("header = %q, want %q", lines[3], "ID      Name")
	}
	if lines[5] != "public  Public" {
		t.Errorf("first row = %q, want public first", lines[5])
	}
	if !strings.Contains(lines[7], "Work colleagues") {
		t.Errorf("last row = %q, want Work colleagues", lines[7])
	}
}

func TestTableFormatter_FormatServices(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatServices(&buf, testServices); err != nil {
		t.Fatalf("FormatServices() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Services", "twitter", "Twitter", "facebook"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestTableFormatter_FormatPost(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatPost(&buf, testPost); err != nil {
		t.Fatalf("FormatPost() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"42", "abc123", "public", "https://pod.example/posts/abc123"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestTableFormatter_FormatPosts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatter := New(Config{Format: FormatTable, ShowTimestamps: true})
	if err := formatter.FormatPosts(&buf, testHistory); err != nil {
		t.Fatalf("FormatPosts() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "aspects 1,2") {
		t.Error("Output missing aspect visibility")
	}
	if !strings.Contains(output, "2024-03-02 09:30:00") {
		t.Error("Output missing timestamps")
	}
	if strings.Index(output, "Second post") > strings.Index(output, "First post") {
		t.Error("Posts not written in the given order")
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatJSON})

	var buf bytes.Buffer
	if err := formatter.FormatAspects(&buf, testAspects); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}

	var aspects []pod.Aspect
	if err := json.Unmarshal(buf.Bytes(), &aspects); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(aspects) != 3 || aspects[0].ID != "public" {
		t.Errorf("aspects = %+v", aspects)
	}

	buf.Reset()
	if err := formatter.FormatPost(&buf, testPost); err != nil {
		t.Fatalf("FormatPost() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"permalink": "https://pod.example/posts/abc123"`) {
		t.Errorf("JSON post missing permalink: %s", buf.String())
	}
}

func TestJSONFormatter_EmptyLists(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatJSON, Compact: true})

	var buf bytes.Buffer
	if err := formatter.FormatServices(&buf, nil); err != nil {
		t.Fatalf("FormatServices() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("FormatServices(nil) = %q, want []", got)
	}

	buf.Reset()
	if err := formatter.FormatPosts(&buf, nil); err != nil {
		t.Fatalf("FormatPosts() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("FormatPosts(nil) = %q, want []", got)
	}
}

func TestSimpleFormatter(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatSimple})

	var buf bytes.Buffer
	if err := formatter.FormatAspects(&buf, testAspects); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}
	if want := "public: Public\n1: Family\n2: Work colleagues\n"; buf.String() != want {
		t.Errorf("FormatAspects() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := formatter.FormatPost(&buf, testPost); err != nil {
		t.Fatalf("FormatPost() error = %v", err)
	}
	if want := "Posted #42 (public): https://pod.example/posts/abc123\n"; buf.String() != want {
		t.Errorf("FormatPost() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := formatter.FormatPosts(&buf, testHistory[:1]); err != nil {
		t.Fatalf("FormatPosts() error = %v", err)
	}
	if want := "#2 Second post - https://pod.example/posts/g2\n"; buf.String() != want {
		t.Errorf("FormatPosts() = %q, want %q", buf.String(), want)
	}
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		public  bool
		aspects []string
		want    string
	}{
		{true, nil, "public"},
		{true, []string{"1"}, "public"},
		{false, nil, "limited"},
		{false, []string{"1", "3"}, "aspects 1,3"},
	}

	for _, tt := range tests {
		if got := visibility(tt.public, tt.aspects); got != tt.want {
			t.Errorf("visibility(%v, %v) = %q, want %q", tt.public, tt.aspects, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		s     string
		width int
		want  string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 8, "hello..."},
		{"newlines collapsed", "hello\n\nworld", 20, "hello world"},
		{"runes", "héllo wörld", 8, "héllo..."},
		{"tiny width", "hello", 2, "he"},
		{"disabled", "hello world", -1, "hello world"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncate(tt.s, tt.width); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
			}
		})
	}
}

func TestCompactMode(t *testing.T) {
	t.Parallel()

	var buf1, buf2 bytes.Buffer
	if err := New(Config{Format: FormatTable}).FormatAspects(&buf1, testAspects); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}
	if err := New(Config{Format: FormatTable, Compact: true}).FormatAspects(&buf2, testAspects); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}

	if len(buf2.String()) >= len(buf1.String()) {
		t.Error("Compact mode did not reduce output length")
	}
}

func TestEmptyData(t *testing.T) {
	t.Parallel()

	formatter := New(Config{Format: FormatTable})

	var buf bytes.Buffer
	if err := formatter.FormatAspects(&buf, nil); err != nil {
		t.Fatalf("FormatAspects() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty aspects should show 'No data'")
	}

	buf.Reset()
	if err := formatter.FormatPosts(&buf, []*store.PostRecord{}); err != nil {
		t.Fatalf("FormatPosts() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Error("Empty history should show 'No data'")
	}
}
