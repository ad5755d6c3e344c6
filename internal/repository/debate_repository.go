package repository

import (
	"errors"

	"gorm.io/gorm"

	"debate_hub/internal/apperr"
	"debate_hub/internal/models"
	"debate_hub/internal/storage"
)

// commitRetries 是版本衝突時重新讀取並套用變更的次數上限
const commitRetries = 3

// errVersionConflict 表示提交時版本號已被其他提交搶先更新
var errVersionConflict = errors.New("debate version conflict")

// DebateRepository 是辯論狀態的唯一出入口。
// 所有變更都必須經過 Commit，以確保前置條件在提交當下仍然成立。
type DebateRepository interface {
	Create(debate *models.Debate) error
	FindByID(id uint) (*models.Debate, error)
	FindAll() ([]models.Debate, error)
	FindByStatus(status models.DebateStatus) ([]models.Debate, error)
	// Commit 以「讀取、套用、帶版本檢查寫回」的方式提交單一邏輯變更。
	// mutate 會在最新狀態上執行，回傳錯誤則整筆放棄；
	// 寫回時版本不符會重新讀取再試，讓 mutate 有機會在新狀態上重新驗證前置條件。
	Commit(id uint, mutate func(*models.Debate) error) (*models.Debate, error)
	// UpdateMessageTranslations 補寫訊息的翻譯結果，
	// 不觸碰 (發送者, 內容, 時間戳) 三元組
	UpdateMessageTranslations(messageID uint, translations map[string]string) error
}

type debateRepository struct {
	db *storage.PostgresDB
}

func NewDebateRepository(db *storage.PostgresDB) DebateRepository {
	return &debateRepository{db: db}
}

func (r *debateRepository) Create(debate *models.Debate) error {
	return r.db.Create(debate).Error
}

func (r *debateRepository) FindByID(id uint) (*models.Debate, error) {
	var debate models.Debate
	err := r.db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, id ASC")
		}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		First(&debate, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "辯論不存在")
	}
	if err != nil {
		return nil, err
	}
	return &debate, nil
}

func (r *debateRepository) FindAll() ([]models.Debate, error) {
	var debates []models.Debate
	err := r.db.
		Preload("Participants").
		Order("created_at DESC").
		Find(&debates).Error
	return debates, err
}

func (r *debateRepository) FindByStatus(status models.DebateStatus) ([]models.Debate, error) {
	var debates []models.Debate
	err := r.db.
		Preload("Participants").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&debates).Error
	return debates, err
}

func (r *debateRepository) Commit(id uint, mutate func(*models.Debate) error) (*models.Debate, error) {
	for attempt := 0; attempt < commitRetries; attempt++ {
		debate, err := r.FindByID(id)
		if err != nil {
			return nil, err
		}

		prevVersion := debate.Version
		if err := mutate(debate); err != nil {
			return nil, err
		}
		debate.Version = prevVersion + 1

		err = r.db.Transaction(func(tx *gorm.DB) error {
			// 版本檢查是每場辯論的唯一序列化點：
			// 版本號不符表示另一個提交搶先完成，整筆重來
			res := tx.Model(&models.Debate{}).
				Where("id = ? AND version = ?", id, prevVersion).
				Select("title", "description", "status", "start_time", "end_time",
					"time_limit", "capacity", "languages", "topics", "settings", "version").
				Updates(debate)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			for i := range debate.Participants {
				p := &debate.Participants[i]
				p.DebateID = debate.ID
				if err := tx.Save(p).Error; err != nil {
					return err
				}
			}

			// 訊息只會新增，已存在的紀錄不再改寫
			for i := range debate.Messages {
				m := &debate.Messages[i]
				if m.ID != 0 {
					continue
				}
				m.DebateID = debate.ID
				if err := tx.Create(m).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return debate, nil
	}
	return nil, apperr.New(apperr.Conflict, "操作衝突，請重試")
}

func (r *debateRepository) UpdateMessageTranslations(messageID uint, translations map[string]string) error {
	return r.db.Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("translated_texts", translations).Error
}
