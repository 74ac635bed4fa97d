package domain

// Alert is a rendered notification.
type Alert struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

// MailMessage is what the outbound mail transport sends.
type MailMessage struct {
	From      string
	To        []string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// NotificationStatus reports how complete the notification config is.
type NotificationStatus struct {
	Enabled               bool    `json:"enabled"`
	RecipientsCount       int     `json:"recipients_count"`
	FromEmail             string  `json:"from_email"`
	ConfidenceThreshold   float64 `json:"confidence_threshold"`
	TransportConfigured   bool    `json:"transport_configured"`
	ConfigurationComplete bool    `json:"configuration_complete"`
}
