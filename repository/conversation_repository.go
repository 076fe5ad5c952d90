package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) CreateConversation(ctx context.Context, conv *models.ConversationRecord) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("fail CreateConversation")
		return err
	}
	return nil
}

func (r *conversationRepository) ListConversations(ctx context.Context) ([]*models.ConversationRecord, error) {
	var res []*models.ConversationRecord
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&res).Error; err != nil {
		logging.Logger.Error().Err(err).Msg("fail ListConversations")
		return nil, err
	}
	return res, nil
}

func (r *conversationRepository) GetConversation(ctx context.Context, id string) (*models.ConversationRecord, error) {
	var res models.ConversationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		logging.Logger.Error().Err(err).Str("conversation_id", id).Msg("fail GetConversation")
		return nil, err
	}
	return &res, nil
}

func (r *conversationRepository) UpdateConversation(ctx context.Context, conv *models.ConversationRecord) error {
	res := r.db.WithContext(ctx).Model(&models.ConversationRecord{}).
		Where("id = ?", conv.ID).
		Updates(map[string]interface{}{
			"title":           conv.Title,
			"root_node_id":    conv.RootNodeID,
			"current_node_id": conv.CurrentNodeID,
			"updated_at":      conv.UpdatedAt,
		})
	if res.Error != nil {
		logging.Logger.Error().Err(res.Error).Str("conversation_id", conv.ID).Msg("fail UpdateConversation")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) DeleteConversation(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.ChatNodeRecord{}).Error; err != nil {
			logging.Logger.Error().Err(err).Str("conversation_id", id).Msg("fail DeleteConversation")
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.ConversationRecord{}).Error; err != nil {
			logging.Logger.Error().Err(err).Str("conversation_id", id).Msg("fail DeleteConversation")
			return err
		}
		return nil
	})
}

func (r *conversationRepository) SaveNodes(ctx context.Context, conversationID string, nodes []*models.ChatNodeRecord) error {
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		n.ConversationID = conversationID
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"parent_id", "position", "role", "content", "stop_reason"}),
	}).CreateInBatches(nodes, 100).Error
	if err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", conversationID).Int("nodes", len(nodes)).Msg("fail SaveNodes")
		return err
	}
	return nil
}

func (r *conversationRepository) LoadNodes(ctx context.Context, conversationID string) ([]*models.ChatNodeRecord, error) {
	var res []*models.ChatNodeRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("position ASC").Order("created_at ASC").
		Find(&res).Error
	if err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", conversationID).Msg("fail LoadNodes")
		return nil, err
	}
	return res, nil
}

func (r *conversationRepository) DeleteNodes(ctx context.Context, conversationID string, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id IN ?", conversationID, nodeIDs).
		Delete(&models.ChatNodeRecord{}).Error
	if err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", conversationID).Msg("fail DeleteNodes")
		return err
	}
	return nil
}
