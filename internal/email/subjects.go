package email

const (
	subjectCampaignFallbackFmt = "News from %s"
	greetingFallbackName       = "there"
	subjectPasswordReset       = "Reset your password"
)
