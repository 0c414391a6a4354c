package view

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderer_Login(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	var buf bytes.Buffer
	data := struct {
		Email string
		Error string
	}{Email: "a@b.com", Error: "Email ou Senha incorretos"}
	if err := r.Render(&buf, "login", data, nil); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Email ou Senha incorretos") || !strings.Contains(out, `value="a@b.com"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate(time.Time{}); got != "N/A" {
		t.Fatalf("expected N/A, got %s", got)
	}
	if got := formatOptDate(nil); got != "N/A" {
		t.Fatalf("expected N/A, got %s", got)
	}
	if got := formatDate(time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)); got != "02/01/2025 03:04:05" {
		t.Fatalf("unexpected format %s", got)
	}
}
