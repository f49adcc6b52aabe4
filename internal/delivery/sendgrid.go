package delivery

// SendGrid 的 SMTP 提交约定：用户名固定为 "apikey"，密码为 API Key。
const (
	sendgridHost = "smtp.sendgrid.net"
	sendgridPort = 587
	sendgridUser = "apikey"
)

// NewSendGridTransport 创建 SendGrid 传输
//
// API Key 作为密码的认证方案封装在此，调用方只看到统一的 Transport。
func NewSendGridTransport(apiKey string) *SMTPTransport {
	t := NewSMTPTransport(sendgridHost, sendgridPort, sendgridUser, apiKey)
	t.name = "sendgrid"
	return t
}
