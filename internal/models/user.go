package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的用戶
type User struct {
	gorm.Model        // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password   string `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	// PreferredLanguage 用戶的慣用語言，加入辯論時記錄在參與者名單上，
	// 作為訊息翻譯的目標語言
	PreferredLanguage string `gorm:"type:varchar(16);default:'en'" json:"preferred_language"`
}
