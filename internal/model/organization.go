package model

// Organization 学校（租户边界）— 对应 organizations
type Organization struct {
	ID      uint   `gorm:"primaryKey"                       json:"id"`
	Name    string `gorm:"type:varchar(255);not null;unique" json:"name"`
	Address string `gorm:"type:text"                        json:"address,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Organization) TableName() string { return "organizations" }
