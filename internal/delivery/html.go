package delivery

import (
	"regexp"
	"strings"
)

var (
	brRegex    = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockRegex = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr)>`)
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
	blankRegex = regexp.MustCompile(`\n{3,}`)
)

// StripHTML 从 HTML 中提取纯文本回退内容
//
// 仅做标签剥离，不重新转义已清洗过的 HTML。
func StripHTML(html string) string {
	text := brRegex.ReplaceAllString(html, "\n")
	text = blockRegex.ReplaceAllString(text, "\n")
	text = tagRegex.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")

	text = blankRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LooksLikeHTML 粗略判断内容是否为 HTML
func LooksLikeHTML(body string) bool {
	return tagRegex.MatchString(body)
}
