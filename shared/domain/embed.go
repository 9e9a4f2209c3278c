package domain

// EmbedPreview is link metadata rendered as a card under the draft.
type EmbedPreview struct {
	URL      URL    `json:"url"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	Image    string `json:"image,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Embed is what a published cast carries for a link or uploaded image.
type Embed struct {
	URL URL `json:"url" cbor:"1,keyasint" validate:"required,url"`
}
