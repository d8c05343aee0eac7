package model

// UserReferral 用户推荐关系，user -> 直接推荐人
// 每个用户至多一个直接推荐人，关系建立后只读
type UserReferral struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	UserID     string `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	ReferrerID string `gorm:"index;not null;column:referrer_id" json:"referrer_id"`
	CreatedAt  int64  `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
}

func (UserReferral) TableName() string {
	return "user_referrals"
}
