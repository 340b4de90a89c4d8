package core

import "fmt"

// CategorySystemPrompt constrains the model to the "categoria: X | confianca: Y"
// answer grammar understood by ParseCategoryResponse.
const CategorySystemPrompt = "Classifique o email em UMA ÚNICA categoria.\n" +
	"Formato obrigatório da resposta:\n" +
	"categoria: <CATEGORIA> | confianca: <1-10>\n" +
	"Categorias sugeridas: SUPORTE, COBRANÇA, PEDIDO, ELOGIO, SPAM, OUTROS."

// ReplySystemPrompt is the system message for reply drafting.
const ReplySystemPrompt = "Você é um assistente especializado em responder emails."

// BuildReplyPrompt builds the user message asking for a reply to text, given
// the label produced by the local classifier.
func BuildReplyPrompt(text, label string) string {
	return fmt.Sprintf(`Você é um assistente profissional que escreve emails claros e educados.
Categoria detectada: %s

Texto original do usuário:
%s

Gere uma resposta objetiva, educada e direta.`, label, text)
}
