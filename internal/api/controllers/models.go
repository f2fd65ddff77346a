package controllers

type downloadRequest struct {
	AppleID  string `json:"appleId"`
	Password string `json:"password"`
	Code     string `json:"code"`
	AppID    string `json:"appId"`
	AppVerID string `json:"appVerId"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
