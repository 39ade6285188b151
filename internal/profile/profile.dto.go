package profile

type CreateProfileRequest struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username" validate:"max=64"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ReferralCodeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// ValidateCodeRequest is unvalidated; an empty or oversized code just does not match.
type ValidateCodeRequest struct {
	Code string `json:"code"`
}

type ReferralCodeResponse struct {
	Code string `json:"code"`
}

type ValidateCodeResponse struct {
	Valid    bool      `json:"valid"`
	Referrer *Referrer `json:"referrer,omitempty"`
}

type ShareCodeResponse struct {
	Code         string `json:"code"`
	ShareLink    string `json:"shareLink"`
	QrCodeBase64 string `json:"qrCodeBase64"`
}
