package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
)

// TranscriptStore is the object storage used for exports.
type TranscriptStore interface {
	PutTranscript(ctx context.Context, title string, body []byte) (string, error)
	GeneratePresignedGetDownload(ctx context.Context, fileKey string, expiration time.Time) (string, error)
}

type ExportService struct {
	store TranscriptStore
	ttl   time.Duration
}

func NewExportService(store TranscriptStore, ttl time.Duration) *ExportService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportService{store: store, ttl: ttl}
}

// Export uploads the path as a markdown transcript and returns a presigned
// download link.
func (s *ExportService) Export(ctx context.Context, title string, path []models.ConversationNode) (*models.ExportResp, error) {
	if s == nil || s.store == nil {
		return nil, apperr.Unavailable(fmt.Errorf("object storage is not configured"), "export")
	}
	key, err := s.store.PutTranscript(ctx, title, []byte(Transcript(title, path)))
	if err != nil {
		return nil, apperr.Unavailable(err, "upload transcript")
	}
	expires := time.Now().Add(s.ttl)
	url, err := s.store.GeneratePresignedGetDownload(ctx, key, expires)
	if err != nil {
		return nil, apperr.Unavailable(err, "presign transcript")
	}
	logging.Logger.Info().Str("key", key).Int("messages", len(path)).Msg("transcript exported")
	return &models.ExportResp{ObjectKey: key, DownloadURL: url, Expires: expires}, nil
}

// Transcript renders a path as markdown. The system prompt is skipped.
func Transcript(title string, path []models.ConversationNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, node := range path {
		if node.Role == models.RoleSystem {
			continue
		}
		speaker := "User"
		if node.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", speaker, strings.TrimRight(node.Content, "\n"))
		switch node.StopReason {
		case models.StopReasonNone, models.StopReasonDone, models.StopReasonStop, "":
		default:
			fmt.Fprintf(&b, "\n_%s_\n", node.StopReason.Text())
		}
	}
	return b.String()
}
