package extract

import (
	"strings"
	"testing"
)

func TestForFile_Dispatch(t *testing.T) {
	cases := []struct {
		filename  string
		supported bool
	}{
		{"notes.txt", true},
		{"README.md", true},
		{"guide.markdown", true},
		{"report.PDF", true},
		{"deck.pptx", false},
		{"script.sh", false},
	}
	for _, c := range cases {
		_, err := ForFile(c.filename)
		if c.supported && err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", c.filename, err)
		}
		if !c.supported && err == nil {
			t.Errorf("ForFile(%q): expected error", c.filename)
		}
		if got := IsSupportedExtension(c.filename); got != c.supported {
			t.Errorf("IsSupportedExtension(%q) = %v", c.filename, got)
		}
	}
}

func TestTextExtractor(t *testing.T) {
	input := "line one\nline two\n\n\nsecond para"
	res, err := (&TextExtractor{}).Extract(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", res.Title)
	}
	if res.Text != "line one\nline two\n\nsecond para" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestMarkdownExtractor(t *testing.T) {
	input := "# Billing Runbook\n\nIntro paragraph.\n\n## Escalation\n\nPage the on-call."
	res, err := (&MarkdownExtractor{}).Extract(strings.NewReader(input), "runbook.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Billing Runbook" {
		t.Errorf("expected h1 title, got %q", res.Title)
	}
	for _, want := range []string{"Intro paragraph.", "Escalation", "Page the on-call."} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected text to contain %q:\n%s", want, res.Text)
		}
	}
}

func TestHTMLExtractor(t *testing.T) {
	input := `<html><head><title>Team Wiki</title><style>p{}</style></head>
<body><nav>skip me</nav><h1>Welcome</h1><p>Hello there.</p><script>var x;</script></body></html>`
	res, err := (&HTMLExtractor{}).Extract(strings.NewReader(input), "wiki.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Team Wiki" {
		t.Errorf("expected <title> to win, got %q", res.Title)
	}
	if !strings.Contains(res.Text, "Welcome") || !strings.Contains(res.Text, "Hello there.") {
		t.Errorf("missing body text: %q", res.Text)
	}
	if strings.Contains(res.Text, "skip me") || strings.Contains(res.Text, "var x") {
		t.Errorf("nav/script content leaked: %q", res.Text)
	}
}

func TestPageTitle(t *testing.T) {
	title, err := PageTitle(strings.NewReader(`<html><head><title>Dash</title></head><body/></html>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Dash" {
		t.Errorf("got %q", title)
	}
}

func TestCSVExtractor(t *testing.T) {
	input := "name,owner\nbilling,alex\nsync,sam"
	res, err := (&CSVExtractor{}).Extract(strings.NewReader(input), "services.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, "Headers: name, owner") {
		t.Errorf("missing header line: %q", res.Text)
	}
	if !strings.Contains(res.Text, "name: billing, owner: alex") {
		t.Errorf("missing flattened row: %q", res.Text)
	}
}
