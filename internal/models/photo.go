package models

import "time"

// Photo is a row in the photos table. ObjectKey resolves against the active
// storage backend; Caption is nil until someone writes one.
type Photo struct {
	ID        int64     `json:"id"`
	ObjectKey string    `json:"object_key"`
	Filename  string    `json:"filename"`
	Caption   *string   `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

type PhotoListResponse struct {
	PhotoIDs []int64 `json:"photo_ids"`
}

type CaptionUpdateRequest struct {
	Caption string `json:"caption"`
}

type RescanResponse struct {
	Status       string `json:"status"`
	NumNewPhotos int    `json:"num_new_photos"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
