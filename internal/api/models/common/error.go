package common

type Headers map[string]string

// Body models errors as JSON in the API
type Body struct {
	Message string `json:"message" binding:"required" example:"Something went wrong :("`
	// Current carries the authoritative record on conflict and precondition
	// failures so clients can merge and retry.
	Current interface{} `json:"current,omitempty" swaggertype:"object"`
}

type ApiError struct {
	StatusCode int
	Body       Body
}

func (a *ApiError) Error() string {
	return a.Body.Message
}
