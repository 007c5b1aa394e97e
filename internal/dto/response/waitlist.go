package response

type WaitlistResponse struct {
	EventID  string `json:"event_id"`
	Position int    `json:"position"`
}
