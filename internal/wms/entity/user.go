package entity

import "time"

// User 用户
type User struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	Username       string `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email          string `json:"email" gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string `json:"-" gorm:"size:100;not null"`
	FullName       string `json:"full_name" gorm:"size:100"`
	IsActive       bool   `json:"is_active" gorm:"default:true"`
	IsSuperuser    bool   `json:"is_superuser" gorm:"default:false"`

	RoleID string `json:"role_id" gorm:"size:32"`
	TeamID string `json:"team_id" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Team *Team `json:"team,omitempty" gorm:"foreignKey:TeamID"`
}

func (User) TableName() string {
	return "wh_users"
}

// Role 权限角色
type Role struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Name        string `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description" gorm:"size:200"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string {
	return "wh_roles"
}

// 团队类型
const (
	TeamTypeProduction = "production" // 生产组
	TeamTypeKeeper     = "keeper"     // 保管组
	TeamTypeInspection = "inspection" // 质检组
)

// Team 团队
type Team struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Name        string `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description" gorm:"size:200"`
	TeamType    string `json:"team_type" gorm:"size:20;not null"`
	LeaderID    string `json:"leader_id" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "wh_teams"
}
