package bubblehouse

// exportResponse is the body Bubblehouse answers export calls with.
// Every field is optional; an empty object means accepted.
type exportResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// rejected reports whether the body carries a refusal
func (r *exportResponse) rejected() bool {
	return r.Error != "" || (r.Success != nil && !*r.Success)
}

// reason returns the most specific message of the response
func (r *exportResponse) reason() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}
