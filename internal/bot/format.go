package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

// escapeMarkdown escapes the characters MarkdownV2 reserves
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// formatReply renders the assistant text followed by the product cards
func formatReply(reply string, products []models.ProductSummary) string {
	text := escapeMarkdown(reply)
	if len(products) > 0 {
		text += "\n\n" + formatProducts(products)
	}
	return text
}

func formatProducts(products []models.ProductSummary) string {
	var sb strings.Builder
	sb.WriteString("*推荐商品:*\n")
	for i, p := range products {
		if p.ProductName == "" {
			sb.WriteString(fmt.Sprintf("%d\\. `%s`\n", i+1, escapeMarkdown(p.ProductID)))
		} else {
			sb.WriteString(fmt.Sprintf("%d\\. *%s* `%s`\n", i+1, escapeMarkdown(p.ProductName), escapeMarkdown(p.ProductID)))
		}

		var details []string
		if p.Price > 0 {
			details = append(details, "¥"+strconv.FormatFloat(p.Price, 'f', -1, 64))
		}
		if p.HeadsetType != "" {
			details = append(details, p.HeadsetType)
		}
		if p.CoreFunction != "" {
			details = append(details, p.CoreFunction)
		}
		if len(details) > 0 {
			sb.WriteString(escapeMarkdown(strings.Join(details, " | ")) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
