package domain

// Identity is the signed-in author a composer acts for.
type Identity struct {
	Fid         Fid
	Username    string
	DisplayName string
	AvatarURL   string
	Elevated    bool // admins get the longer input limit
}

// InputLimit picks the character limit for this identity.
func (i Identity) InputLimit(standard, elevated int) int {
	if i.Elevated {
		return elevated
	}
	return standard
}
