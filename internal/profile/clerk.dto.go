package profile

import "encoding/json"

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type ClerkUserData struct {
	ID              string         `json:"id"`
	Username        string         `json:"username"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	ImageURL        string         `json:"image_url"`
	ProfileImageURL string         `json:"profile_image_url"`
	UnsafeMetadata  map[string]any `json:"unsafe_metadata"`
}

// DisplayName is the username, or first and last name joined when unset.
func (u *ClerkUserData) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName + u.LastName
}

// ReferralCode is the invite code the client stored at sign-up, if any.
func (u *ClerkUserData) ReferralCode() string {
	code, _ := u.UnsafeMetadata["referral_code"].(string)
	return code
}
