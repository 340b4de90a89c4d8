package training

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadDataset(t *testing.T) {
	in := "\ufefftext,label\n" +
		"\"Reunião marcada para amanhã, às 10h.\",Produtivo\n" +
		"Feliz Natal a todos!,Improdutivo\n"

	ds, err := ReadDataset(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	want := []Sample{
		{Text: "Reunião marcada para amanhã, às 10h.", Label: "Produtivo"},
		{Text: "Feliz Natal a todos!", Label: "Improdutivo"},
	}
	if !reflect.DeepEqual(ds.Samples, want) {
		t.Errorf("samples = %+v", ds.Samples)
	}
	if !reflect.DeepEqual(ds.Labels, []string{"Produtivo", "Improdutivo"}) {
		t.Errorf("labels = %v", ds.Labels)
	}
}

func TestReadDatasetExtraColumns(t *testing.T) {
	in := "id,label,text\n1,Produtivo,Solicito a correção do boleto.\n2,Improdutivo,Parabéns!\n"
	ds, err := ReadDataset(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Samples[0].Text != "Solicito a correção do boleto." || ds.Samples[1].Label != "Improdutivo" {
		t.Errorf("unexpected samples %+v", ds.Samples)
	}
}

func TestReadDatasetValidation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"empty file", "", "empty"},
		{"header only", "text,label\n", "no rows"},
		{"missing label column", "text,categoria\nOi,x\n", "label"},
		{"missing both columns", "a,b\n1,2\n", "text, label"},
		{"single label", "text,label\nOi,Produtivo\nOlá,Produtivo\n", "two distinct labels"},
		{"empty label", "text,label\nOi,\nOlá,Produtivo\n", "empty label"},
		{"short row", "text,label\nOi\n", "fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(tt.in))
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q should mention %q", err, tt.msg)
			}
		})
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
