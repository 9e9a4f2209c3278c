package domain

// File is a media blob selected by the user.
type File struct {
	Name     string
	MimeType string // as declared by the picker; may be empty
	Data     []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Attachment is a file waiting to be uploaded together with its local preview handle.
type Attachment struct {
	Id         AttachmentId
	File       File
	PreviewURL URL
}

// ImagePreview is the display half of an attachment. Width and Height are
// nil when the image header could not be decoded.
type ImagePreview struct {
	Id     AttachmentId
	Src    URL
	Width  *int
	Height *int
}

type Attachments = []*Attachment
