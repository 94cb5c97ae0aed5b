package apiv1

// Pong is the body of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// Health reports the state of the backing services.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
