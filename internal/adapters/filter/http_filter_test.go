package filter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ml"
)

type fakeClassifier struct {
	last core.ClassificationRequest
	err  error
}

func (f *fakeClassifier) Classify(_ context.Context, req core.ClassificationRequest) (*core.ClassificationResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	text := req.Text
	if req.FileName != "" {
		text = string(req.FileData)
	}
	return &core.ClassificationResult{
		ProcessingID:   "id-1",
		OriginalText:   text,
		Label:          "Produtivo",
		Confidence:     0.912,
		Category:       "SUPORTE",
		SuggestedReply: "Olá, recebemos sua solicitação.",
	}, nil
}

func (f *fakeClassifier) ClassifyEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.Classify(ctx, core.ClassificationRequest{Text: email.Subject + "\n\n" + email.Body})
}

type fakeRegistry struct {
	ready   bool
	loadErr error
	loads   int
}

func (r *fakeRegistry) Ready() bool { return r.ready }

func (r *fakeRegistry) Load() error {
	r.loads++
	if r.loadErr == nil {
		r.ready = true
	}
	return r.loadErr
}

func (r *fakeRegistry) Info() *ml.ArtifactInfo {
	if !r.ready {
		return nil
	}
	return &ml.ArtifactInfo{Version: ml.ArtifactVersion, Features: 42, Classes: []string{"Improdutivo", "Produtivo"}}
}

func newTestHTTP(svc *fakeClassifier, reg *fakeRegistry) *HTTPFilter {
	return NewHTTPFilter(svc, reg, zap.NewNop(), HTTPOptions{ListenAddr: ":0"})
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(fileData)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestIndexPage(t *testing.T) {
	f := newTestHTTP(&fakeClassifier{}, &fakeRegistry{})
	resp, err := f.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `name="text_input"`) {
		t.Errorf("status %d body %q", resp.StatusCode, body)
	}
}

func TestPredictForm(t *testing.T) {
	svc := &fakeClassifier{}
	f := newTestHTTP(svc, &fakeRegistry{})

	body, ct := multipartBody(t, map[string]string{"text_input": "Preciso do status do chamado"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", ct)
	resp, err := f.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	html := readBody(t, resp)
	for _, want := range []string{"Produtivo", "0.912", "SUPORTE", "Olá, recebemos sua solicitação."} {
		if !strings.Contains(html, want) {
			t.Errorf("response missing %q", want)
		}
	}
	if svc.last.Text != "Preciso do status do chamado" || svc.last.FileName != "" {
		t.Errorf("request = %+v", svc.last)
	}
}

func TestPredictFileUpload(t *testing.T) {
	svc := &fakeClassifier{}
	f := newTestHTTP(svc, &fakeRegistry{})

	body, ct := multipartBody(t, map[string]string{"text_input": "ignorado"}, "email.txt", []byte("conteúdo do arquivo"))
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", ct)
	resp, err := f.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if svc.last.FileName != "email.txt" || string(svc.last.FileData) != "conteúdo do arquivo" {
		t.Errorf("request = %+v", svc.last)
	}
}

func TestPredictShowsUserError(t *testing.T) {
	svc := &fakeClassifier{err: core.ErrNoText}
	f := newTestHTTP(svc, &fakeRegistry{})

	body, ct := multipartBody(t, map[string]string{"text_input": "   "}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", ct)
	resp, err := f.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if html := readBody(t, resp); !strings.Contains(html, core.MessageNoText) {
		t.Errorf("expected %q in page", core.MessageNoText)
	}
}

func TestClassifyAPI(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantError  string
	}{
		{"ok", nil, `{"text":"Segue o relatório"}`, http.StatusOK, ""},
		{"no text", core.ErrNoText, `{"text":""}`, http.StatusBadRequest, core.MessageNoText},
		{"extraction", core.NewExtractionError(errors.New("bad")), `{"text":"x"}`, http.StatusUnprocessableEntity, "Erro ao processar arquivo: bad"},
		{"internal", errors.New("boom"), `{"text":"x"}`, http.StatusInternalServerError, "Erro interno ao processar a solicitação."},
		{"malformed json", nil, `{`, http.StatusBadRequest, "JSON inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestHTTP(&fakeClassifier{err: tt.err}, &fakeRegistry{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := f.App().Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			raw := readBody(t, resp)
			if tt.wantError != "" {
				var out map[string]string
				if err := json.Unmarshal([]byte(raw), &out); err != nil {
					t.Fatal(err)
				}
				if out["error"] != tt.wantError {
					t.Errorf("error = %q, want %q", out["error"], tt.wantError)
				}
				return
			}
			var result core.ClassificationResult
			if err := json.Unmarshal([]byte(raw), &result); err != nil {
				t.Fatal(err)
			}
			if result.Label != "Produtivo" || result.OriginalText != "Segue o relatório" {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestReadinessAndReload(t *testing.T) {
	reg := &fakeRegistry{}
	f := newTestHTTP(&fakeClassifier{}, reg)

	resp, _ := f.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
	resp, _ = f.App().Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready before load = %d", resp.StatusCode)
	}

	reg.loadErr = ml.ErrModelUnavailable
	resp, _ = f.App().Test(httptest.NewRequest(http.MethodPost, "/api/v1/model/reload", nil))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("failed reload = %d", resp.StatusCode)
	}

	reg.loadErr = nil
	resp, _ = f.App().Test(httptest.NewRequest(http.MethodPost, "/api/v1/model/reload", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reload = %d", resp.StatusCode)
	}
	resp, _ = f.App().Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready after load = %d", resp.StatusCode)
	}
	if reg.loads != 2 {
		t.Errorf("loads = %d", reg.loads)
	}
}
