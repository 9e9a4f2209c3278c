package domain

// ParentRef identifies the cast being replied to.
type ParentRef struct {
	Hash     CastHash
	Fid      Fid
	Username string
}
