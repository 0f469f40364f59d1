package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager("test-secret-key", "couple-app")
}

// 测试签发并验证令牌
func (suite *JWTTestSuite) TestValidateToken() {
	token, err := suite.manager.GenerateToken("user-789", time.Hour)
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal("user-789", claims.User())
	suite.Equal("couple-app", claims.Issuer)
}

// 测试只有sub的宿主令牌
func (suite *JWTTestSuite) TestSubjectOnly() {
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "couple-app",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	suite.Require().NoError(err)

	parsed, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal("alice", parsed.User())
}

// 测试没有用户ID的令牌
func (suite *JWTTestSuite) TestMissingUser() {
	token, err := suite.manager.GenerateToken("", time.Hour)
	suite.Require().NoError(err)

	claims, err := suite.manager.ValidateToken(token)
	suite.ErrorIs(err, ErrMissingUser)
	suite.Nil(claims)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	// 无效格式的令牌
	claims, err := suite.manager.ValidateToken("invalid.token.format")
	suite.Error(err)
	suite.Nil(claims)

	// 错误的签名
	wrongManager := NewJWTManager("wrong-secret", "couple-app")
	token, _ := wrongManager.GenerateToken("bob", time.Hour)
	claims, err = suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)

	// 错误的签发方
	otherIssuer := NewJWTManager("test-secret-key", "someone-else")
	token, _ = otherIssuer.GenerateToken("bob", time.Hour)
	claims, err = suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	token, _ := suite.manager.GenerateToken("expired", -time.Hour)

	claims, err := suite.manager.ValidateToken(token)
	suite.ErrorIs(err, ErrExpiredToken)
	suite.Nil(claims)
}

// 测试不校验签发方
func (suite *JWTTestSuite) TestEmptyIssuer() {
	lenient := NewJWTManager("test-secret-key", "")
	token, _ := suite.manager.GenerateToken("carol", time.Hour)

	claims, err := lenient.ValidateToken(token)
	suite.NoError(err)
	suite.Equal("carol", claims.User())
}

// 测试并发生成令牌
func (suite *JWTTestSuite) TestConcurrentTokenGeneration() {
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			token, err := suite.manager.GenerateToken(fmt.Sprintf("user%d", id), time.Hour)
			suite.NoError(err)
			suite.NotEmpty(token)
			done <- true
		}(i)
	}

	// 等待所有goroutine完成
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
