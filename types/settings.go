package types

// EmailSettings configures the verification message sent to users.
type EmailSettings struct {
	APIKey        string `json:"api_key"`
	SenderEmail   string `json:"sender_email"`
	CompanyName   string `json:"company_name"`
	EmailTemplate string `json:"email_template"`
}

// SubscriptionSettings configures the paid reader plan offer.
type SubscriptionSettings struct {
	ShowPaymentButton bool   `json:"show_payment_button"`
	PaymentLink       string `json:"payment_link"`
	MonthlyPrice      string `json:"monthly_price"`
}

// WatermarkSettings configures the mark stamped on e-paper clippings.
type WatermarkSettings struct {
	Text    string  `json:"text"`
	LogoURL *string `json:"logo_url"`
}

// DefaultEmailSettings are used until an administrator saves their own.
func DefaultEmailSettings() EmailSettings {
	return EmailSettings{
		APIKey:      "SIMULATED-KEY-12345",
		SenderEmail: "support@cjnewshub.com",
		CompanyName: "CJ News Hub",
		EmailTemplate: "Hi {name},\nhere is your verification code please enter to change your password/passcode {code}\n\n" +
			"thankyou for contact support team \n{companyName}",
	}
}

// DefaultSubscriptionSettings are used until an administrator saves their own.
func DefaultSubscriptionSettings() SubscriptionSettings {
	return SubscriptionSettings{
		ShowPaymentButton: false,
		PaymentLink:       "https://paypal.com",
		MonthlyPrice:      "$9.99",
	}
}

// DefaultWatermarkSettings are used until an administrator saves their own.
func DefaultWatermarkSettings() WatermarkSettings {
	return WatermarkSettings{Text: "CJ NEWS HUB"}
}
