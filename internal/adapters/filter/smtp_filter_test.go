package filter

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/whitelist"
)

type relayed struct {
	sender     string
	recipients []string
	data       string
	calls      int
}

func newTestSMTP(svc *fakeClassifier, domains []string) (*SMTPFilter, *relayed) {
	f := NewSMTPFilter(svc, whitelist.NewChecker(domains, zap.NewNop()), zap.NewNop(), SMTPOptions{
		RelayEnabled:     true,
		LabelHeader:      "X-Email-Productivity",
		ConfidenceHeader: "X-Email-Productivity-Confidence",
		CategoryHeader:   "X-Email-Category",
	})
	out := &relayed{}
	f.relay = func(sender string, recipients []string, data []byte) error {
		out.sender, out.recipients, out.data = sender, recipients, string(data)
		out.calls++
		return nil
	}
	return f, out
}

const sampleMessage = "From: ana@cliente.com.br\r\n" +
	"To: suporte@empresa.com\r\n" +
	"Subject: Status do chamado\r\n" +
	"X-Email-Productivity: Improdutivo\r\n" +
	"X-Email-Category: forged\r\n" +
	" continued\r\n" +
	"\r\n" +
	"Qual o status do chamado 123?\r\n"

func TestSMTPTagsAndRelays(t *testing.T) {
	svc := &fakeClassifier{}
	f, out := newTestSMTP(svc, nil)

	if err := f.handleMessage("ana@cliente.com.br", []string{"suporte@empresa.com"}, []byte(sampleMessage)); err != nil {
		t.Fatal(err)
	}
	if out.calls != 1 || out.sender != "ana@cliente.com.br" {
		t.Fatalf("relay = %+v", out)
	}
	for _, want := range []string{
		"X-Email-Productivity: Produtivo\r\n",
		"X-Email-Productivity-Confidence: 0.912\r\n",
		"X-Email-Category: SUPORTE\r\n",
		"Subject: Status do chamado\r\n",
		"\r\n\r\nQual o status do chamado 123?\r\n",
	} {
		if !strings.Contains(out.data, want) {
			t.Errorf("relayed message missing %q:\n%s", want, out.data)
		}
	}
	for _, forged := range []string{"Improdutivo", "forged", "continued"} {
		if strings.Contains(out.data, forged) {
			t.Errorf("forged header %q survived", forged)
		}
	}
	if !strings.Contains(svc.last.Text, "Status do chamado") || !strings.Contains(svc.last.Text, "chamado 123") {
		t.Errorf("classified text = %q", svc.last.Text)
	}
}

func TestSMTPWhitelistBypass(t *testing.T) {
	svc := &fakeClassifier{}
	f, out := newTestSMTP(svc, []string{"cliente.com.br"})

	if err := f.handleMessage("ana@cliente.com.br", []string{"x@empresa.com"}, []byte(sampleMessage)); err != nil {
		t.Fatal(err)
	}
	if out.data != sampleMessage {
		t.Errorf("whitelisted message should be relayed untouched")
	}
	if svc.last.Text != "" {
		t.Errorf("whitelisted message should not be classified")
	}
}

func TestSMTPClassificationErrorRelaysUntouched(t *testing.T) {
	f, out := newTestSMTP(&fakeClassifier{err: core.ErrNoText}, nil)
	if err := f.handleMessage("a@b.com", []string{"c@d.com"}, []byte(sampleMessage)); err != nil {
		t.Fatal(err)
	}
	if out.data != sampleMessage {
		t.Errorf("message should be relayed untouched on classification error")
	}
}

func TestSMTPRelayFailure(t *testing.T) {
	f, _ := newTestSMTP(&fakeClassifier{}, nil)
	f.relay = func(string, []string, []byte) error { return errors.New("connection refused") }
	if err := f.handleMessage("a@b.com", []string{"c@d.com"}, []byte(sampleMessage)); err == nil {
		t.Error("relay failure should be reported to the MTA")
	}
}

func TestRewriteHeadersLFOnly(t *testing.T) {
	got := string(rewriteHeaders([]byte("Subject: oi\nX-Tag: old\n\ncorpo\n"), []headerField{{"X-Tag", "new\r\nvalue"}}))
	want := "X-Tag: new value\r\nSubject: oi\n\r\ncorpo\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
