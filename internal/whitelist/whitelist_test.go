package whitelist

import (
	"testing"

	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Empresa.com.br ", "parceiro.io", ""}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"ana@empresa.com.br", true},
		{"ANA@EMPRESA.COM.BR", true},
		{"Ana Souza <ana@empresa.com.br>", true},
		{"bot@mail.parceiro.io", true},
		{"x@notparceiro.io", false},
		{"x@empresa.com", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.IsWhitelisted(tt.from); got != tt.want {
			t.Errorf("IsWhitelisted(%q) = %v, want %v", tt.from, got, tt.want)
		}
	}

	if got := c.Domains(); len(got) != 2 {
		t.Errorf("Domains = %v", got)
	}
}

func TestEmptyWhitelist(t *testing.T) {
	if NewChecker(nil, nil).IsWhitelisted("a@b.com") {
		t.Error("empty whitelist must not match")
	}
}
