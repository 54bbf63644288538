// Package hash 提供密码的 bcrypt 哈希与校验。
package hash

import "golang.org/x/crypto/bcrypt"

// HashPassword 使用 bcrypt 默认代价对明文密码进行哈希。
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash 比较明文密码与存储的哈希，匹配时返回 true。
func CheckPasswordHash(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
