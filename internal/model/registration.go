package model

// ==========================================
// 设备注册 - 数据模型
// ==========================================

// RegistrationRequest 注册请求体
// 首次启动时向平台注册本机，字段来源于配置文件 registration 段
type RegistrationRequest struct {
	DeviceName   string `json:"device_name"`
	Organization string `json:"organization"`
	Environment  string `json:"environment"` // production/staging/development
	Location     string `json:"location"`
	AdminEmail   string `json:"admin_email"`
	PolicyGroup  string `json:"policy_group"`
	LicenseKey   string `json:"license_key"`
	// 本机硬件指纹，便于平台侧识别重复注册
	Fingerprint string `json:"fingerprint"`
}

// RegistrationResponse 注册响应体
type RegistrationResponse struct {
	DeviceID string `json:"device_id"`
	APIKey   string `json:"api_key"`
	Status   string `json:"status"`
}

// AgentProfile 本地持久化的身份档案
// 注册成功后写入 data_dir/agent.json，后续启动直接加载
type AgentProfile struct {
	DeviceID     string              `json:"device_id"`
	APIKey       string              `json:"api_key"`
	Registration RegistrationRequest `json:"registration_data"`
}
