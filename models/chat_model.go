package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type StopReason string

const (
	StopReasonNone          StopReason = "none"
	StopReasonDone          StopReason = "done"
	StopReasonStop          StopReason = "stop"
	StopReasonLength        StopReason = "length"
	StopReasonContentFilter StopReason = "content-filter"
	StopReasonUserStopped   StopReason = "user-stopped"
	StopReasonError         StopReason = "error"
)

// Text is the label shown under a finished message.
func (r StopReason) Text() string {
	switch r {
	case StopReasonLength:
		return "Maximum length reached"
	case StopReasonError:
		return "An error occurred while generating"
	case StopReasonContentFilter:
		return "Content was filtered"
	case StopReasonUserStopped:
		return "Stopped by user"
	case StopReasonStop:
		return "Model stopped"
	case StopReasonDone:
		return "Completed"
	case StopReasonNone, "":
		return "None"
	default:
		return "Unknown"
	}
}

// ConversationNode is one message turn. ChildIDs is ordered; index 0 is the
// primary variant.
type ConversationNode struct {
	ID         string     `json:"id"`
	ParentID   string     `json:"parent_id"`
	ChildIDs   []string   `json:"child_ids"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	StopReason StopReason `json:"stop_reason"`
}

// Clone returns a snapshot that shares no slices with n.
func (n ConversationNode) Clone() ConversationNode {
	c := n
	c.ChildIDs = append([]string(nil), n.ChildIDs...)
	if c.ChildIDs == nil {
		c.ChildIDs = []string{}
	}
	return c
}

// ClonePath snapshots every node of a path.
func ClonePath(path []ConversationNode) []ConversationNode {
	res := make([]ConversationNode, 0, len(path))
	for _, node := range path {
		res = append(res, node.Clone())
	}
	return res
}

type ChatTreeNode struct {
	ID         string          `json:"id"`
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	StopReason StopReason      `json:"stop_reason"`
	Children   []*ChatTreeNode `json:"children"`
}

// ConversationRecord is the persisted header of one conversation tree.
type ConversationRecord struct {
	ID            string `gorm:"primaryKey"`
	Title         string
	RootNodeID    string
	CurrentNodeID string
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"index"`
}

// ChatNodeRecord is the persisted form of a ConversationNode. Position keeps
// the sibling order of the parent's ChildIDs.
type ChatNodeRecord struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index"`
	ParentID       string `gorm:"index"`
	Position       int
	Role           string
	Content        string `gorm:"type:text"`
	StopReason     string
	CreatedAt      time.Time
}

type ConversationInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LLMSettings are the generation parameters used by the conversation service.
type LLMSettings struct {
	APIKey       string  `json:"api_key"`
	BaseURL      string  `json:"base_url"`
	Model        string  `json:"model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	SystemPrompt string  `json:"system_prompt"`
}

// SettingsRecord persists LLMSettings under a fixed key.
type SettingsRecord struct {
	ID           string `gorm:"primaryKey"`
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	SystemPrompt string `gorm:"type:text"`
	UpdatedAt    time.Time
}
