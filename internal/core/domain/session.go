package domain

// Session is the token and user pair the front end keeps for one browser.
//
// Version is the store's write stamp. A caller passes back the version it
// read so that a concurrent writer is detected instead of silently lost.
type Session struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
	Version     int64  `json:"-"`
}

// Present reports whether both halves of the session are set. A token
// without a user (or the reverse) is treated as no session at all.
func (s *Session) Present() bool {
	return s != nil && s.AccessToken != "" && s.User.ID != ""
}

// WithEmail returns a copy of the session with only the cached email replaced.
func (s Session) WithEmail(email string) Session {
	s.User.Email = email
	return s
}
