package delivery

// Mailgun 的 SMTP 提交约定：用户名为发信域名下的固定邮箱 postmaster@<domain>。
const (
	mailgunHost = "smtp.mailgun.org"
	mailgunPort = 587
)

// NewMailgunTransport 创建 Mailgun 传输
//
// password 为域名对应的 SMTP 凭据；user 为空时使用 postmaster@<domain>。
func NewMailgunTransport(domainName, user, password string) *SMTPTransport {
	if user == "" {
		user = "postmaster@" + domainName
	}
	t := NewSMTPTransport(mailgunHost, mailgunPort, user, password)
	t.name = "mailgun"
	return t
}
