package service

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// 文本守卫：启发式的注入/XSS 过滤，不是完整的 sanitizer。
// 规则与上限对任务、挑战、场景、评论等所有自由文本字段统一生效。

// ValidationError 标记可以直接回给客户端的输入错误（对应 400）。
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError 判断一个错误是否来自输入校验。
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)<object[^>]*>`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)Function\s*\(`),
}

var (
	specialCharPattern = regexp.MustCompile("[<>{}\\[\\]\\\\`]")
	namePattern        = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	strictPolicy       = bluemonday.StrictPolicy()
)

// ValidateText 去除首尾空白、限定长度并拒绝危险内容。
// 长度按字符数（rune）计，多字节文本不会被误判超长。
// 返回清洗后的文本；出错时 error 文案直接面向客户端。
func ValidateText(value, field string, minLen, maxLen int) (string, error) {
	text := strings.TrimSpace(value)

	length := utf8.RuneCountInString(text)
	if length < minLen {
		return "", validationErrorf("%s is too short", field)
	}
	if length > maxLen {
		return "", validationErrorf("%s is too long (max %d characters)", field, maxLen)
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(text) {
			return "", validationErrorf("%s contains potentially unsafe content", field)
		}
	}

	// bluemonday 严格策略会剥掉所有标签；剥完（还原转义后）变样说明藏了标记
	if html.UnescapeString(strictPolicy.Sanitize(text)) != text {
		return "", validationErrorf("%s contains potentially unsafe content", field)
	}

	// 特殊字符密度超过 10% 视为可疑
	if len(specialCharPattern.FindAllString(text, -1))*10 > length {
		return "", validationErrorf("%s contains too many special characters", field)
	}

	return text, nil
}

// ValidateName 校验人名/Couple 名：1-30 字符，仅字母、空格、连字符、撇号与句点。
func ValidateName(value, field string) (string, error) {
	name, err := ValidateText(value, field, 1, 30)
	if err != nil {
		return "", err
	}
	if !namePattern.MatchString(name) {
		return "", validationErrorf("%s contains invalid characters", field)
	}
	return name, nil
}

// ValidateComments 校验可选评论，空值合法。
func ValidateComments(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return ValidateText(value, "Comments", 1, 300)
}

// ValidateID 校验作为标识的整数：非负且最多 5 位数。
func ValidateID(value int, field string) error {
	if value < 0 || value > 99999 {
		return validationErrorf("%s must be a non-negative integer of at most 5 digits", field)
	}
	return nil
}
