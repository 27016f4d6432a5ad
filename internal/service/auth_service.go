package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coupleup/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrUserExists 在用户名已被占用时返回
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials 在用户名或密码不匹配时返回（不区分具体原因）
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrCoupleNameRequired 在新建 Couple 却未提供名称时返回
	ErrCoupleNameRequired = errors.New("couple name required for new couples")
	// ErrIdentityRejected 在外部身份提供方拒绝令牌时返回
	ErrIdentityRejected = errors.New("identity token rejected")
)

// IdentityVerifier 校验联合登录令牌并返回稳定的外部身份（邮箱）。
// 具体实现见 google_verifier.go；测试中用假实现替换。
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (email string, err error)
}

// AuthService 负责注册与登录：本地凭据路径和联合身份路径共用同一套
// Couple 创建/加入事务。
type AuthService struct {
	db       *gorm.DB
	couples  *CoupleService
	tokens   *TokenService
	verifier IdentityVerifier
}

// RegisterInput 定义注册时可提交的字段。
// InvitationCode 与 CoupleName 互斥：给邀请码就加入既有 Couple，否则新建。
type RegisterInput struct {
	Username       string
	Password       string
	Name           string
	InvitationCode string
	CoupleName     string
}

// AuthResult 是注册/登录成功后的载荷
type AuthResult struct {
	AccessToken    string
	RefreshToken   string
	UserID         uint
	CoupleID       uint
	CoupleName     string
	InvitationCode string
}

// NewAuthService 构造 AuthService
func NewAuthService(gdb *gorm.DB, couples *CoupleService, tokens *TokenService, verifier IdentityVerifier) *AuthService {
	return &AuthService{db: gdb, couples: couples, tokens: tokens, verifier: verifier}
}

// Register 处理本地凭据注册。
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, validationErrorf("username is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, validationErrorf("password is required")
	}
	return s.register(input, username, true)
}

// GoogleRegister 处理联合身份注册：先向身份提供方核验令牌拿到邮箱，
// 再走与本地注册相同的 Couple 事务。令牌校验失败不重试。
func (s *AuthService) GoogleRegister(ctx context.Context, token string, input RegisterInput) (*AuthResult, error) {
	email, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, ErrIdentityRejected
	}
	return s.register(input, email, false)
}

func (s *AuthService) register(input RegisterInput, username string, withPassword bool) (*AuthResult, error) {
	name, err := ValidateName(input.Name, "Name")
	if err != nil {
		return nil, err
	}

	var existing db.User
	err = s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	code := strings.TrimSpace(input.InvitationCode)
	if code != "" && (len(code) < 10 || len(code) > 40) {
		return nil, ErrInvitationNotFound
	}

	var (
		user   db.User
		couple *db.Couple
	)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		if code != "" {
			couple, txErr = s.couples.Join(tx, code)
		} else {
			if strings.TrimSpace(input.CoupleName) == "" {
				return ErrCoupleNameRequired
			}
			couple, txErr = s.couples.Create(tx, input.CoupleName)
		}
		if txErr != nil {
			return txErr
		}

		user = db.User{
			Username: username,
			Name:     name,
			CoupleID: couple.ID,
		}
		if withPassword {
			if txErr := user.SetPassword(input.Password); txErr != nil {
				return fmt.Errorf("hash password: %w", txErr)
			}
		}

		if txErr := tx.Create(&user).Error; txErr != nil {
			return fmt.Errorf("create user: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.result(&user, couple)
}

// Login 处理本地凭据登录。
func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return s.loginResult(&user)
}

// GoogleLogin 处理联合身份登录。
func (s *AuthService) GoogleLogin(ctx context.Context, token string) (*AuthResult, error) {
	email, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, ErrIdentityRejected
	}

	var user db.User
	if err := s.db.Where("username = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return s.loginResult(&user)
}

func (s *AuthService) loginResult(user *db.User) (*AuthResult, error) {
	var couple db.Couple
	if err := s.db.First(&couple, user.CoupleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoupleNotFound
		}
		return nil, fmt.Errorf("find couple: %w", err)
	}
	return s.result(user, &couple)
}

func (s *AuthService) result(user *db.User, couple *db.Couple) (*AuthResult, error) {
	access, refresh, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:    access,
		RefreshToken:   refresh,
		UserID:         user.ID,
		CoupleID:       couple.ID,
		CoupleName:     couple.Name,
		InvitationCode: couple.InvitationCode,
	}, nil
}
