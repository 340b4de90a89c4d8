package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strings"
)

const (
	LabelProductive   = "Produtivo"
	LabelUnproductive = "Improdutivo"
)

var productiveTemplates = []string{
	"Preciso de uma atualização sobre o chamado %d.",
	"Anexo o relatório mensal. Favor confirmar recebimento.",
	"Existe alguma previsão para a entrega do documento?",
	"Solicito a correção do boleto em anexo.",
	"Pode me enviar os arquivos do projeto?",
	"Reunião marcada para amanhã às 10h.",
}

var unproductiveTemplates = []string{
	"Bom dia! Feliz Natal a todos.",
	"Agradeço pelo suporte, tudo certo por aqui.",
	"Parabéns pelo trabalho realizado!",
	"Oi, tudo bem? Como foi seu final de semana?",
}

// utf8BOM is written first so spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

// GenerateDataset writes a synthetic labelled CSV with pairs rows of each
// class, alternating productive and unproductive. Output is fully determined
// by seed.
func GenerateDataset(w io.Writer, pairs int, seed int64) error {
	if pairs <= 0 {
		return fmt.Errorf("pairs must be positive, got %d", pairs)
	}
	rng := rand.New(rand.NewSource(seed))

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{textColumn, labelColumn}); err != nil {
		return err
	}
	for i := 0; i < pairs; i++ {
		text := productiveTemplates[rng.Intn(len(productiveTemplates))]
		if strings.Contains(text, "%d") {
			text = fmt.Sprintf(text, 100+rng.Intn(9900))
		}
		if err := cw.Write([]string{text, LabelProductive}); err != nil {
			return err
		}
		text = unproductiveTemplates[rng.Intn(len(unproductiveTemplates))]
		if err := cw.Write([]string{text, LabelUnproductive}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
