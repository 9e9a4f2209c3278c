package domain

type (
	Fid          = uint64
	AttachmentId = string
	CastHash     = string // hex, no 0x prefix
	URL          = string
)
