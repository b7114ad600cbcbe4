package translate

import (
	"strings"
	"testing"
)

func TestSanitizeAIText_RemovesInlineParenthesizedDisclaimer(t *testing.T) {
	in := "伊朗会谈恢复\n(Note: This translation is a machine translation and may contain errors.) 双方代表在日内瓦会面。"
	out := SanitizeAIText(in)
	if out == "" {
		t.Fatalf("got empty output")
	}
	if strings.Contains(strings.ToLower(out), "note:") {
		t.Errorf("output still contains 'Note:' disclaimer: %q", out)
	}
	if !strings.Contains(out, "双方代表在日内瓦会面") {
		t.Errorf("expected content preserved after disclaimer removal, got: %q", out)
	}
}

func TestSanitizeAIText_RemovesFullLineNote(t *testing.T) {
	in := "Note: This translation is a machine translation and may contain errors.\nУ Марокко тривають демонстрації."
	out := SanitizeAIText(in)
	if strings.Contains(strings.ToLower(out), "note:") {
		t.Errorf("disclaimer line was not removed: %q", out)
	}
	if out != "У Марокко тривають демонстрації." {
		t.Errorf("expected content line to remain, got %q", out)
	}
}

func TestSanitizeAIText_RemovesBracketedDisclaimer(t *testing.T) {
	in := "[Note: Machine translation] Це тестовий рядок."
	out := SanitizeAIText(in)
	if strings.Contains(strings.ToLower(out), "note") {
		t.Errorf("bracketed disclaimer was not removed: %q", out)
	}
	if out != "Це тестовий рядок." {
		t.Errorf("expected text preserved, got %q", out)
	}
}

func TestSanitizeAIText_PlainTextUnchanged(t *testing.T) {
	in := "特朗普宣布新政策"
	if out := SanitizeAIText(in); out != in {
		t.Errorf("plain translation changed: %q", out)
	}
}
