package dashboard

import (
	"strings"
	"testing"
)

func TestTemplate_ContainsPlaceholders(t *testing.T) {
	tmpl := Template()

	for _, placeholder := range []string{"{{STATUS}}", "{{ACCOUNTS}}"} {
		if strings.Count(tmpl, placeholder) != 1 {
			t.Errorf("template should contain %s exactly once", placeholder)
		}
	}
}

func TestTemplate_IsHTMLDocument(t *testing.T) {
	tmpl := Template()

	if !strings.HasPrefix(tmpl, "<!DOCTYPE html>") {
		t.Error("template should start with a doctype")
	}
	if !strings.Contains(tmpl, "</body>") {
		t.Error("template should contain a closing body tag")
	}
}
