package model

// EbookDownloadRequest is the body of POST /download-ebook/.
type EbookDownloadRequest struct {
	Ebook          int64  `json:"ebook"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	ConsentMailing bool   `json:"consent_mailing"`
}

// EbookDownloadResponse is the reply to a download submission. Success is
// carried by the body flag, independently of the HTTP status.
type EbookDownloadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url,omitempty"`
	Message     string `json:"message,omitempty"`
	EbookID     int64  `json:"ebook_id,omitempty"`
	EbookTitle  string `json:"ebook_title,omitempty"`
}
