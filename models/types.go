package models

import "time"

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SwitchVariantRequest struct {
	Direction int `json:"direction"`
}

type JumpRequest struct {
	NodeID string `json:"node_id"`
}

type ConversationTitleRequest struct {
	Title string `json:"title"`
}

type RenderRequest struct {
	Content string `json:"content"`
}

type ExportResp struct {
	ObjectKey   string    `json:"object_key"`
	DownloadURL string    `json:"download_url"`
	Expires     time.Time `json:"expires"`
}
