package constants

// Static route constants
const (
	WebhooksRoute = "/webhooks"
	// Safe2Pay posts recurrence callbacks here; the full path is what plans
	// register as CallbackUrl.
	Safe2PayWebhookPath  = "/safe2pay"
	Safe2PayWebhookRoute = WebhooksRoute + Safe2PayWebhookPath

	APIRoute   = "/api"
	APIV1Path  = "/v1"
	AdminPath  = "/admin"
	DocsRoute  = "/docs/api/"
	DocsV1Path = "v1"
)
