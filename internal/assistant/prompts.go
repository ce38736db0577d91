package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/shopbot-experiment/internal/models"
	"github.com/xaenox/shopbot-experiment/internal/recommend"
)

const systemPromptTemplate = `你是一个热情专业的耳机导购AI，像真人一样自然聊天。
关键规则：
1. 商品列表是全部可用耳机（共%d款），从中自主选择最合适的耳机推荐（可以选1-5款），绝对不允许编造列表外商品。
2. 自主分析用户需求（预算、类型、功能、品牌等），从列表中匹配。
3. 风格控制：
   - 适应性水平：%s（HIGH：详细理解需求、主动追问不清楚的地方、给出个性化理由；LOW：简短回复、不追问）。
   - 校准水平：%s（HIGH：强调为什么这些商品匹配用户需求；LOW：直接推荐，不多解释匹配理由）。
4. 特殊处理：
   - 用户问价格范围（如“1000以上”“高端”），优先选匹配的。
   - 用户问品牌，从列表总结可用品牌。
   - 用户要求对比，客观比较列表中商品。
   - 可以引用之前推荐过的商品（列表最前面的是之前推荐过的）。
5. 回复自然口语化（用“你”“我”“呢”“哦”），必须提到商品名称、价格、核心功能。
   - 长度200-300字，自然结束，不用Markdown。
6. 回复最后单独一行输出推荐标记，格式严格为：%s 商品编号1, 商品编号2%s
   - 只出现一次，只列出你这次真正推荐给用户的商品编号（如EAR001）。
   - 仅用于对比或回顾历史而提到的商品不要列入。`

// SystemPrompt renders the instructions for one turn, including the
// recommendation marker contract.
func SystemPrompt(cond models.Condition, candidateCount int) string {
	return fmt.Sprintf(systemPromptTemplate,
		candidateCount,
		cond.Adaptivity,
		cond.Calibration,
		recommend.MarkerStart,
		recommend.MarkerEnd,
	)
}

// UserPrompt combines the participant's message with the candidate listing
func UserPrompt(message string, candidates []models.Product) string {
	var b strings.Builder
	b.WriteString("用户消息：")
	b.WriteString(message)
	b.WriteString("\n\n")
	b.WriteString(RenderCandidates(candidates))
	return b.String()
}

// RenderCandidates formats products as a numbered listing
func RenderCandidates(candidates []models.Product) string {
	if len(candidates) == 0 {
		return "暂无可用商品"
	}

	var b strings.Builder
	b.WriteString("可用商品列表（请从中选择推荐）：\n")
	for i, p := range candidates {
		fmt.Fprintf(&b, "%d. [%s] %s | ¥%s | %s | 功能: %s | 品牌: %s | 适合: %s\n",
			i+1,
			p.ID,
			p.Name,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			orDefault(p.HeadsetType, "无"),
			orDefault(p.CoreFunction, "无"),
			orDefault(p.Brand, "无"),
			orDefault(p.Scenario, "日常"),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
