package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/dragon-companion/internal/utils"
)

// SmokeClient 对运行中的服务做冒烟测试
type SmokeClient struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     map[string]string
}

// envelope 统一响应
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// NewSmokeClient 创建测试客户端，令牌用本地密钥签发
func NewSmokeClient(baseURL string, jwt *utils.JWTManager, users ...string) (*SmokeClient, error) {
	c := &SmokeClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: make(map[string]string, len(users)),
	}
	for _, user := range users {
		token, err := jwt.GenerateToken(user, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("签发令牌失败: %v", err)
		}
		c.tokens[user] = token
	}
	return c, nil
}

func (c *SmokeClient) call(method, path, user string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("JSON编码失败: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens[user]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("解析响应失败: %v (HTTP %d)", err, resp.StatusCode)
	}
	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("[%d] %s: %s", env.Error.Code, env.Error.Message, env.Error.Details)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// TestHealthCheck 测试健康检查
func (c *SmokeClient) TestHealthCheck() error {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
	if err != nil {
		return fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if health["status"] != "healthy" {
		return fmt.Errorf("服务状态: %v", health["status"])
	}
	fmt.Printf("   在线连接: %v\n", health["online"])
	return nil
}

// TestObserve 查看龙宠
func (c *SmokeClient) TestObserve(user string) error {
	var snap map[string]interface{}
	if err := c.call(http.MethodGet, "/api/v1/dragon", user, nil, &snap); err != nil {
		return err
	}
	fmt.Printf("   %s 的龙宠: 阶段=%v 经验=%v 饥饿=%v 心情=%v 健康=%v\n",
		user, snap["stage"], snap["experience"], snap["hunger"], snap["happiness"], snap["health"])
	return nil
}

// TestCheckin 每日签到，同一天重复签到不应再有奖励
func (c *SmokeClient) TestCheckin(user string) error {
	req := map[string]string{
		"activity_type": "daily_checkin",
		"activity_id":   time.Now().Format("2006-01-02"),
	}

	var first, second struct {
		XP        int64    `json:"xp"`
		Items     []string `json:"items"`
		Duplicate bool     `json:"duplicate"`
	}
	if err := c.call(http.MethodPost, "/api/v1/activities", user, req, &first); err != nil {
		return err
	}
	if err := c.call(http.MethodPost, "/api/v1/activities", user, req, &second); err != nil {
		return err
	}
	if !second.Duplicate || second.XP != 0 {
		return fmt.Errorf("重复签到仍获得奖励: %+v", second)
	}
	fmt.Printf("   签到奖励: xp=%d items=%v duplicate=%v\n", first.XP, first.Items, first.Duplicate)
	return nil
}

// TestPlay 不带玩具玩耍
func (c *SmokeClient) TestPlay(user string) error {
	return c.call(http.MethodPost, "/api/v1/dragon/play", user, nil, nil)
}

// TestGift 赠送背包里的第一个物品，并等待对方收到变更通知
func (c *SmokeClient) TestGift(from, to string) error {
	var inventory []struct {
		ItemID   string `json:"item_id"`
		Quantity int64  `json:"quantity"`
	}
	if err := c.call(http.MethodGet, "/api/v1/inventory", from, nil, &inventory); err != nil {
		return err
	}
	if len(inventory) == 0 {
		fmt.Println("   背包为空，跳过赠送")
		return nil
	}

	conn, err := c.dialWebSocket(to)
	if err != nil {
		return err
	}
	defer conn.Close()

	itemID := inventory[0].ItemID
	req := map[string]string{"to_user_id": to, "item_id": itemID, "message": "smoke test"}
	if err := c.call(http.MethodPost, "/api/v1/gifts", from, req, nil); err != nil {
		return err
	}
	fmt.Printf("   %s 赠送 %s 给 %s\n", from, itemID, to)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("等待变更通知失败: %v", err)
		}
		if msg.Type == "dragon_changed" {
			fmt.Printf("   %s 收到通知: %s\n", to, msg.Data)
			return nil
		}
	}
}

func (c *SmokeClient) dialWebSocket(user string) (*websocket.Conn, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {c.tokens[user]}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("WebSocket连接失败: %v", err)
	}
	return conn, nil
}

// RunAll 运行所有测试
func (c *SmokeClient) RunAll(user, peer string) int {
	fmt.Printf("目标服务器: %s\n", c.BaseURL)
	fmt.Println(strings.Repeat("=", 60))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"健康检查", c.TestHealthCheck},
		{"查看龙宠", func() error { return c.TestObserve(user) }},
		{"每日签到", func() error { return c.TestCheckin(user) }},
		{"玩耍", func() error { return c.TestPlay(user) }},
		{"赠送礼物", func() error { return c.TestGift(user, peer) }},
		{"查看对方龙宠", func() error { return c.TestObserve(peer) }},
	}

	failed := 0
	for _, test := range tests {
		if err := test.fn(); err != nil {
			fmt.Printf("FAIL %s: %v\n", test.name, err)
			failed++
		} else {
			fmt.Printf("PASS %s\n", test.name)
		}
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("测试结果: %d/%d 通过\n", len(tests)-failed, len(tests))
	return failed
}

func main() {
	var (
		addr   = flag.String("addr", "http://localhost:8080", "服务地址")
		secret = flag.String("secret", os.Getenv("DRAGON_SECURITY_JWT_SECRET"), "JWT密钥")
		issuer = flag.String("issuer", "couple-app", "JWT签发方")
		user   = flag.String("user", "smoke-alice", "测试用户")
		peer   = flag.String("peer", "smoke-bob", "赠送对象")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Println("缺少JWT密钥，使用 -secret 或 DRAGON_SECURITY_JWT_SECRET")
		os.Exit(2)
	}

	client, err := NewSmokeClient(*addr, utils.NewJWTManager(*secret, *issuer), *user, *peer)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if failed := client.RunAll(*user, *peer); failed > 0 {
		os.Exit(1)
	}
}
