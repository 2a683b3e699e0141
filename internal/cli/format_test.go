package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/netskip/internal/pagestore"
)

func Test_FormatPageLine_Aligns_URL_When_Title_Has_Wide_Runes(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	narrow := formatPageLine(pagestore.Page{ID: 1, URL: "https://a.example", Title: "plain", Date: date})
	wide := formatPageLine(pagestore.Page{ID: 2, URL: "https://a.example", Title: "日本語のページ", Date: date})

	if runewidth.StringWidth(narrow) != runewidth.StringWidth(wide) {
		t.Fatalf("columns misaligned:\n%s\n%s", narrow, wide)
	}

	long := formatPageLine(pagestore.Page{ID: 3, URL: "https://a.example", Title: strings.Repeat("長", 50), Date: date})
	if !strings.Contains(long, "…") || runewidth.StringWidth(long) != runewidth.StringWidth(narrow) {
		t.Fatalf("long title not truncated to column:\n%s\n%s", narrow, long)
	}

	if !strings.Contains(narrow, "2026-10-14T08:00:00Z") {
		t.Fatalf("date not rendered in UTC RFC 3339: %s", narrow)
	}
}

func Test_FormatPageLine_Shows_Placeholders_When_Fields_Empty(t *testing.T) {
	t.Parallel()

	line := formatPageLine(pagestore.Page{ID: 4, Date: time.Unix(0, 0)})
	if !strings.Contains(line, " - ") || !strings.HasSuffix(line, "(blank)") {
		t.Fatalf("line = %q", line)
	}
}

func Test_SplitLine_Groups_Quoted_Words_When_Parsing(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		line string
		want []string
	}{
		{line: "ls history", want: []string{"ls", "history"}},
		{line: `add favorite --title "Go  Docs" https://go.dev`, want: []string{"add", "favorite", "--title", "Go  Docs", "https://go.dev"}},
		{line: `add active ''`, want: []string{"add", "active", ""}},
		{line: "  rm\thistory   1 ", want: []string{"rm", "history", "1"}},
		{line: `update history --title=it's"" --id 1`, want: nil},
	} {
		got, err := splitLine(tt.line)
		if tt.want == nil {
			if err == nil {
				t.Errorf("splitLine(%q) = %q, want unterminated quote error", tt.line, got)
			}

			continue
		}

		if err != nil {
			t.Errorf("splitLine(%q): %v", tt.line, err)

			continue
		}

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("splitLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func Test_Completions_Offer_Commands_Then_Categories_When_Typing(t *testing.T) {
	t.Parallel()

	a := &app{}

	if diff := cmp.Diff([]string{"rm", "restore"}, completions(a, "r")); diff != "" {
		t.Errorf("command completion mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"ls favorite"}, completions(a, "ls f")); diff != "" {
		t.Errorf("category completion mismatch (-want +got):\n%s", diff)
	}

	if got := completions(a, "ls "); len(got) != 3 {
		t.Errorf("completions(\"ls \") = %q, want all categories", got)
	}

	if got := completions(a, "schema "); got != nil {
		t.Errorf("schema takes no category, got %q", got)
	}
}

func Test_ParseIDs_Rejects_Non_Positive_When_Parsing(t *testing.T) {
	t.Parallel()

	ids, err := parseIDs([]string{"3", "1"})
	if err != nil || !cmp.Equal(ids, []int64{3, 1}) {
		t.Fatalf("parseIDs = %v, %v", ids, err)
	}

	for _, bad := range []string{"0", "-2", "x"} {
		if _, err := parseIDs([]string{bad}); err == nil {
			t.Errorf("parseIDs(%q) succeeded", bad)
		}
	}
}
