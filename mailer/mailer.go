package mailer

import (
	"github.com/netlify/mailme"

	"github.com/studymall/studymall/conf"
	"github.com/studymall/studymall/models"
)

// Mailer sends the transactional mail for signup and purchases.
type Mailer interface {
	VerificationMail(email, code string) error
	PurchaseConfirmationMail(email string, purchases []*models.Purchase) error
}

type liveMailer struct {
	siteURL  string
	subjects struct {
		verification string
		purchase     string
	}
	mailer *mailme.Mailer
}

const defaultVerificationTemplate = `<h2>이메일 인증</h2>
<p>아래 인증 코드를 입력해 주세요. 코드는 10분 동안 유효합니다.</p>
<p><strong>{{ .Code }}</strong></p>`

const defaultPurchaseTemplate = `<h2>구매가 완료되었습니다</h2>
<ul>{{ range .Purchases }}<li>{{ .ProductTitle }}: {{ .ProductPrice }}원</li>{{ end }}</ul>
<p><a href="{{ .SiteURL }}/my/purchases">내 구매 목록</a>에서 다운로드할 수 있습니다.</p>`

// NewMailer returns a mailer backed by the configured SMTP host, or a
// noop mailer when none is configured.
func NewMailer(config *conf.Configuration) Mailer {
	mailConf := config.Mailer
	if mailConf.Host == "" {
		return newNoopMailer()
	}

	m := &liveMailer{
		siteURL: config.SiteURL,
		mailer: &mailme.Mailer{
			Host:    mailConf.Host,
			Port:    mailConf.Port,
			User:    mailConf.User,
			Pass:    mailConf.Pass,
			From:    mailConf.AdminEmail,
			BaseURL: config.SiteURL,
		},
	}
	m.subjects.verification = mailConf.Subjects.Verification
	m.subjects.purchase = mailConf.Subjects.Purchase
	return m
}

func (m *liveMailer) VerificationMail(email, code string) error {
	return m.mailer.Mail(
		email,
		m.subjects.verification,
		"",
		defaultVerificationTemplate,
		map[string]interface{}{
			"SiteURL": m.siteURL,
			"Code":    code,
		},
	)
}

func (m *liveMailer) PurchaseConfirmationMail(email string, purchases []*models.Purchase) error {
	return m.mailer.Mail(
		email,
		m.subjects.purchase,
		"",
		defaultPurchaseTemplate,
		map[string]interface{}{
			"SiteURL":   m.siteURL,
			"Purchases": purchases,
		},
	)
}
