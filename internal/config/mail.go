package config

// MailConfig describes the outbound SMTP transport and the address
// that receives admin alerts. An empty Host disables delivery; the
// dispatcher then only logs what it would have sent.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
	StoreName  string
	TLS        bool
}

// LoadMailConfig reads SMTP_*, MAIL_FROM, ADMIN_EMAIL and STORE_NAME.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:       envStr("SMTP_HOST", ""),
		Port:       envInt("SMTP_PORT", 587),
		Username:   envStr("SMTP_USER", ""),
		Password:   envStr("SMTP_PASS", ""),
		From:       envStr("MAIL_FROM", "no-reply@localhost"),
		AdminEmail: envStr("ADMIN_EMAIL", ""),
		StoreName:  envStr("STORE_NAME", "Storefront"),
		TLS:        envBool("SMTP_TLS", true),
	}
}

// Enabled reports whether a transport is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }
