package mailsync

import (
	"strings"

	"mailhost/backend/internal/domain"
)

// DeriveIMAPHost 推导收信主机
//
// 显式的 IMAPHost 字段最权威；smtp/mail→imap 的文本替换只是兜底启发式，
// 用来覆盖从未配置显式字段的运营场景。回退顺序：
// 邮箱 IMAPHost → 邮箱 SMTP 主机替换 → 域名 SMTP 主机替换 → 全局 SMTP 主机替换。
// 结果指向回环地址时归一为 localhost。找不到任何候选返回空串。
func DeriveIMAPHost(account *domain.EmailAccount, mailDomain *domain.MailDomain, globalSMTPHost string) string {
	if account != nil && account.IMAPHost != "" {
		return normalizeLoopback(account.IMAPHost)
	}

	candidates := []string{}
	if account != nil {
		candidates = append(candidates, account.SMTPHost)
	}
	if mailDomain != nil {
		candidates = append(candidates, mailDomain.SMTPHost)
	}
	candidates = append(candidates, globalSMTPHost)

	for _, smtpHost := range candidates {
		if smtpHost == "" {
			continue
		}
		return normalizeLoopback(substituteIMAP(smtpHost))
	}
	return ""
}

func substituteIMAP(host string) string {
	switch {
	case strings.Contains(host, "smtp"):
		return strings.Replace(host, "smtp", "imap", 1)
	case strings.Contains(host, "mail"):
		return strings.Replace(host, "mail", "imap", 1)
	default:
		return host
	}
}

func normalizeLoopback(host string) string {
	switch host {
	case "127.0.0.1", "::1", "0.0.0.0", "localhost":
		return "localhost"
	}
	return host
}
