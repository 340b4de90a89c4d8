package nlp

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "meeting sentence",
			in:   "Reunião marcada para amanhã às 10h.",
			want: []string{"reuniã", "marc", "amanhã"},
		},
		{
			name: "greeting sentence",
			in:   "Feliz Natal a todos!",
			want: []string{"feliz", "natal", "tod"},
		},
		{
			name: "links and addresses removed",
			in:   "Veja http://exemplo.com/x?y=1 www.site.org joao@empresa.com @maria Feliz",
			want: []string{"vej", "feliz"},
		},
		{
			name: "empty",
			in:   "",
			want: []string{},
		},
		{
			name: "no alphabetic content",
			in:   "123 456 !!! ?? 7",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.in)
			if got == nil {
				t.Fatal("Normalize returned nil slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClean(t *testing.T) {
	n := NewNormalizer()
	got := n.Clean("  CHAMADO 4521\t\tABERTO  por https://helpdesk/x  ")
	if got != "chamado aberto por" {
		t.Errorf("Clean = %q", got)
	}
}

// realisticInputs mixes request-style and social messages as they arrive.
var realisticInputs = []string{
	"Preciso de uma atualização sobre o chamado 98213.",
	"Preciso do boleto atualizado, por favor.",
	"Anexo o relatório mensal. Favor confirmar recebimento.",
	"O tema da reunião é importante.",
	"Estamos com um problema no sistema desde ontem.",
	"Existe alguma previsão para a entrega do documento?",
	"Solicito a correção do boleto em anexo: R$ 1.234,56 até 05/12.",
	"Pode me enviar os arquivos do projeto?",
	"Oi, tudo bem? Como foi seu final de semana? 😀 2024",
	"Parabéns pelo trabalho realizado! Agradeço pelo suporte.",
	"Reunião marcada para amanhã às 10h. Feliz Natal a todos! Podemos remarcar?",
	"a e o é à x y z 1 2 3",
}

func TestNormalizeProperties(t *testing.T) {
	n := NewNormalizer()
	for _, in := range realisticInputs {
		for _, tok := range n.Normalize(in) {
			if utf8.RuneCountInString(tok) <= 1 {
				t.Errorf("%q: token %q too short", in, tok)
			}
			if strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
				t.Errorf("%q: token %q contains a digit", in, tok)
			}
			if n.IsStopword(tok) {
				t.Errorf("%q: token %q is a stop-word", in, tok)
			}
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer()
	for _, in := range realisticInputs {
		first := n.Normalize(in)
		second := n.Normalize(strings.Join(first, " "))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%q: second pass = %v, want %v", in, second, first)
		}
	}
}

func TestNormalizeDropsStemsThatAreStopwords(t *testing.T) {
	n := NewNormalizer()
	got := n.Normalize("O tema da reunião é importante")
	want := []string{"reuniã", "import"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestStemSettles(t *testing.T) {
	for _, w := range []string{"problema", "sistema", "preciso", "atualizado", "reunião", "tema"} {
		s := Stem(w)
		if again := Stem(s); again != s {
			t.Errorf("Stem(%q) = %q but Stem(%q) = %q", w, s, s, again)
		}
	}
}

func TestStopwords(t *testing.T) {
	n := NewNormalizer()
	for _, w := range []string{"de", "não", "às", "você", "tivéssemos"} {
		if !n.IsStopword(w) {
			t.Errorf("%q should be a stop-word", w)
		}
	}
	if n.IsStopword("reunião") {
		t.Error("reunião should not be a stop-word")
	}

	list := PortugueseStopwords()
	list[0] = "mutated"
	if !n.IsStopword("a") || PortugueseStopwords()[0] != "a" {
		t.Error("PortugueseStopwords must return a copy")
	}
}
