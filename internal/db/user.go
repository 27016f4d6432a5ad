package db

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型。
// CoupleID 非空：用户从注册那一刻起就必须隶属于一个 Couple，不允许游离账号。
// PasswordHash 可空，联合登录（Google）用户没有本地密码。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"size:30;not null"`
	PasswordHash string
	CoupleID     uint   `gorm:"index;not null"`
	Couple       Couple `gorm:"constraint:OnDelete:CASCADE"`
}

// SetPassword 以 bcrypt 哈希写入密码，明文不落库。
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword 校验明文密码，未设置本地密码时恒为 false。
func (u *User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
