package model

// User is the authenticated user's profile as returned by users/@me.
type User struct {
	UUID              string `json:"uuid"`
	Username          string `json:"username"`
	DisplayName       string `json:"displayName,omitempty"`
	AvatarImage       string `json:"avatarImage,omitempty"`
	BannerImage       string `json:"bannerImage,omitempty"`
	RequestsRemaining int    `json:"requestsRemaining"`
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
