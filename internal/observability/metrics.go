package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MSagaStepFailures    MetricKey = "saga_step_failures_total"
	MNotificationsSent   MetricKey = "notifications_sent_total"
)
