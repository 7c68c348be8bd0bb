package dto

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	// 用户名规则：3-50个字符，字母、数字、下划线
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

	validate = validator.New()
)

const (
	minPasswordLen = 8
	// bcrypt 只接受 72 字节以内的输入
	maxPasswordBytes = 72

	maxNameLen        = 50
	maxChannelNameLen = 50
	maxDescriptionLen = 255
	maxEmailLen       = 255
	maxPictureURLLen  = 512
)

// ============================================================================
// 验证错误
// ============================================================================

var (
	ErrUsernameEmpty     = errors.New("用户名不能为空")
	ErrUsernameInvalid   = errors.New("用户名格式不正确（3-50个字符，仅限字母、数字、下划线）")
	ErrEmailEmpty        = errors.New("邮箱不能为空")
	ErrEmailInvalid      = errors.New("邮箱格式不正确")
	ErrNameEmpty         = errors.New("姓名不能为空")
	ErrNameTooLong       = errors.New("姓名长度不能超过50个字符")
	ErrPasswordEmpty     = errors.New("密码不能为空")
	ErrPasswordTooShort  = errors.New("密码长度不能少于8位")
	ErrPasswordTooLong   = errors.New("密码长度不能超过72字节")
	ErrPasswordWeak      = errors.New("密码必须同时包含字母、数字和符号")
	ErrPasswordMismatch  = errors.New("两次输入的密码不一致")
	ErrTokenEmpty        = errors.New("Token不能为空")
	ErrPictureURLEmpty   = errors.New("头像URL不能为空")
	ErrPictureURLTooLong = errors.New("头像URL过长")
	ErrUserIDInvalid     = errors.New("用户ID无效")
	ErrChannelIDInvalid  = errors.New("频道ID无效")
	ErrChannelNameEmpty  = errors.New("频道名称不能为空")
	ErrChannelNameLong   = errors.New("频道名称不能超过50个字符")
	ErrDescriptionLong   = errors.New("频道描述不能超过255个字符")
	ErrMessageEmpty      = errors.New("消息内容不能为空")
	ErrMessageTooLong    = errors.New("消息内容过长")
)

// ============================================================================
// 字段规则
// ============================================================================

func validateUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailEmpty
	}
	if len(email) > maxEmailLen || validate.Var(email, "email") != nil {
		return ErrEmailInvalid
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// validatePassword 至少8位，同时包含字母、数字和符号
func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasLetter || !hasDigit || !hasSymbol {
		return ErrPasswordWeak
	}
	return nil
}

// NormalizeEmail 邮箱统一小写存储
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// 用户 DTO 验证
// ============================================================================

// Validate 验证注册DTO（会规范化 Email 和 Name）
func (d *RegisterDTO) Validate() error {
	d.Email = NormalizeEmail(d.Email)
	d.Name = strings.TrimSpace(d.Name)

	if err := validateUsername(d.Username); err != nil {
		return err
	}
	if err := validateEmail(d.Email); err != nil {
		return err
	}
	if err := validateName(d.Name); err != nil {
		return err
	}
	if err := validatePassword(d.Password); err != nil {
		return err
	}
	if d.Password != d.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// Validate 验证登录DTO，登录不校验密码强度
func (d *LoginDTO) Validate() error {
	if err := validateUsername(d.Username); err != nil {
		return err
	}
	if d.Password == "" {
		return ErrPasswordEmpty
	}
	if len(d.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func (d *LogoutDTO) Validate() error {
	if d.Token == "" {
		return ErrTokenEmpty
	}
	return nil
}

func (d *UpdateProfileDTO) Validate() error {
	d.Email = NormalizeEmail(d.Email)
	d.Name = strings.TrimSpace(d.Name)

	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if err := validateName(d.Name); err != nil {
		return err
	}
	return validateEmail(d.Email)
}

func (d *ChangePasswordDTO) Validate() error {
	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.OldPassword == "" {
		return ErrPasswordEmpty
	}
	if err := validatePassword(d.NewPassword); err != nil {
		return err
	}
	if d.NewPassword != d.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func (d *UpdateProfilePictureDTO) Validate() error {
	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.ProfilePicture == "" {
		return ErrPictureURLEmpty
	}
	if len(d.ProfilePicture) > maxPictureURLLen {
		return ErrPictureURLTooLong
	}
	return nil
}

// ============================================================================
// 频道 DTO 验证
// ============================================================================

func (d *CreateChannelDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)

	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.Name == "" {
		return ErrChannelNameEmpty
	}
	if utf8.RuneCountInString(d.Name) > maxChannelNameLen {
		return ErrChannelNameLong
	}
	if utf8.RuneCountInString(d.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

func (d *VisitChannelDTO) Validate() error {
	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.ChannelID == 0 {
		return ErrChannelIDInvalid
	}
	return nil
}

// Validate 验证发送消息DTO，maxLen 为消息最大字符数
func (d *SendMessageDTO) Validate(maxLen int) error {
	d.Text = strings.TrimSpace(d.Text)

	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.ChannelID == 0 {
		return ErrChannelIDInvalid
	}
	if d.Text == "" {
		return ErrMessageEmpty
	}
	if utf8.RuneCountInString(d.Text) > maxLen {
		return ErrMessageTooLong
	}
	return nil
}

func (d *ListMessagesDTO) Validate() error {
	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.ChannelID == 0 {
		return ErrChannelIDInvalid
	}
	return nil
}

// IsValidationError 是否为参数校验错误
func IsValidationError(err error) bool {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrUsernameEmpty, ErrUsernameInvalid, ErrEmailEmpty, ErrEmailInvalid, ErrNameEmpty, ErrNameTooLong,
	ErrPasswordEmpty, ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordWeak, ErrPasswordMismatch,
	ErrTokenEmpty, ErrPictureURLEmpty, ErrPictureURLTooLong, ErrUserIDInvalid, ErrChannelIDInvalid,
	ErrChannelNameEmpty, ErrChannelNameLong, ErrDescriptionLong, ErrMessageEmpty, ErrMessageTooLong,
}
