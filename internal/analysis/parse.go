package analysis

import (
	"strconv"
	"strings"

	"github.com/ninja0404/token-tracker/internal/model"
)

// ParseResponse 解析模型输出。首行为 ACTION|CONFIDENCE，其余为分析正文。
// 首行不符合约定时 action 为 NOTHING，全文作为分析正文。
func ParseResponse(text string) (model.AnalysisAction, *int, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ActionNothing, nil, ""
	}

	head, body, _ := strings.Cut(text, "\n")
	head = strings.Trim(strings.TrimSpace(head), "*`")

	actionPart, confPart, hasSep := strings.Cut(head, "|")
	action := model.AnalysisAction(strings.ToUpper(strings.TrimSpace(actionPart)))
	if !action.Valid() {
		return model.ActionNothing, nil, text
	}

	var confidence *int
	if hasSep {
		confidence = parseConfidence(confPart)
	}
	return action, confidence, strings.TrimSpace(body)
}

// parseConfidence 接受 "80"、"80%"、"0.8" 等写法，结果限制在 0-100
func parseConfidence(s string) *int {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if f > 0 && f < 1 && strings.Contains(s, ".") {
		f *= 100
	}
	v := model.ClampConfidence(int(f + 0.5))
	return &v
}
