package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/host"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
	"linuxFileSentry/internal/transport"
)

// ==========================================
// 设备身份管理
// ==========================================

// profileFileName 身份档案文件名，存放在 data_dir 下
const profileFileName = "agent.json"

// registerRoute 平台的设备注册路径
const registerRoute = "/register"

var (
	profile     *model.AgentProfile
	profilePath string
	mu          sync.RWMutex
)

// Init 加载本地身份档案
// 档案不存在说明尚未注册，不算错误；档案损坏则报错，人工介入比悄悄重注册安全
func Init(dataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	profilePath = filepath.Join(dataDir, profileFileName)

	data, err := os.ReadFile(profilePath)
	if os.IsNotExist(err) {
		logger.Info("No agent profile found, registration required", "path", profilePath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read agent profile: %w", err)
	}

	var p model.AgentProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("corrupt agent profile %s: %w", profilePath, err)
	}
	if p.DeviceID == "" || p.APIKey == "" {
		return fmt.Errorf("incomplete agent profile %s", profilePath)
	}

	profile = &p
	logger.Info("Agent profile loaded", "device_id", p.DeviceID)
	return nil
}

// IsRegistered 本机是否已持有有效身份
func IsRegistered() bool {
	mu.RLock()
	defer mu.RUnlock()
	return profile != nil
}

// Get 获取身份档案
// 未注册时返回 nil，调用方自行判断
func Get() *model.AgentProfile {
	mu.RLock()
	defer mu.RUnlock()
	return profile
}

// Register 向平台注册本机并持久化颁发的身份
// 注册是一次性动作，已注册时直接返回
func Register(ctx context.Context, client *transport.Client, regCfg *config.RegistrationConfig) error {
	if IsRegistered() {
		return nil
	}

	req := model.RegistrationRequest{
		DeviceName:   regCfg.DeviceName,
		Organization: regCfg.Organization,
		Environment:  regCfg.Environment,
		Location:     regCfg.Location,
		AdminEmail:   regCfg.AdminEmail,
		PolicyGroup:  regCfg.PolicyGroup,
		LicenseKey:   regCfg.LicenseKey,
		Fingerprint:  Fingerprint(),
	}
	if req.DeviceName == "" {
		if hn, err := os.Hostname(); err == nil {
			req.DeviceName = hn
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal registration request: %w", err)
	}

	respBytes, err := client.PostJSON(ctx, registerRoute, body)
	if err != nil {
		return fmt.Errorf("registration request failed: %w", err)
	}

	var resp model.RegistrationResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return fmt.Errorf("parse registration response: %w", err)
	}
	if resp.DeviceID == "" || resp.APIKey == "" {
		return fmt.Errorf("registration response missing credentials, status=%q", resp.Status)
	}

	p := &model.AgentProfile{
		DeviceID:     resp.DeviceID,
		APIKey:       resp.APIKey,
		Registration: req,
	}
	if err := saveProfile(p); err != nil {
		return err
	}

	mu.Lock()
	profile = p
	mu.Unlock()

	logger.Info("Device registered", "device_id", resp.DeviceID, "status", resp.Status)
	return nil
}

// Fingerprint 本机硬件指纹
// 机器 ID + 主机名 + 平台信息做摘要，重装 Agent 不变，换机器才变
func Fingerprint() string {
	h := sha256.New()

	if info, err := host.Info(); err == nil {
		h.Write([]byte(info.HostID))
		h.Write([]byte(info.Hostname))
		h.Write([]byte(info.Platform))
		h.Write([]byte(info.KernelArch))
	} else if hn, hnErr := os.Hostname(); hnErr == nil {
		// 取不到硬件信息时退化为主机名指纹
		h.Write([]byte(hn))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// GetUserAgent 拼装请求 UA，已注册时携带设备 ID
func GetUserAgent() string {
	ua := fmt.Sprintf("linuxFileSentry/%s", config.Version)
	if p := Get(); p != nil {
		ua = fmt.Sprintf("%s (device_id=%s)", ua, p.DeviceID)
	}
	return ua
}

// saveProfile 先写临时文件再改名，避免写一半断电留下坏档案
func saveProfile(p *model.AgentProfile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal agent profile: %w", err)
	}

	tmpPath := profilePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write agent profile: %w", err)
	}
	if err := os.Rename(tmpPath, profilePath); err != nil {
		return fmt.Errorf("commit agent profile: %w", err)
	}
	return nil
}
