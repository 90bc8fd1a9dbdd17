package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSOptions 定义加载证书所需的路径参数，全部留空时走系统信任链
type TLSOptions struct {
	CAPath     string // 根证书路径 (用于验证服务端)
	CertPath   string // 客户端证书路径 (双向认证时使用)
	KeyPath    string // 客户端私钥路径
	ServerName string // 服务端证书的 Common Name (可选，IP 直连时覆盖校验)
}

// buildTLSConfig 读取证书文件并构建 TLS 配置
func buildTLSConfig(opts TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12, // 强制 TLS 1.2+ (安全基线)
		ServerName: opts.ServerName,
	}

	// 1. 加载 CA 根证书 (可选)
	if opts.CAPath != "" {
		caCert, err := os.ReadFile(opts.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %v", err)
		}
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
			return nil, fmt.Errorf("failed to append CA cert")
		}
		cfg.RootCAs = caCertPool
	}

	// 2. 加载客户端证书对 (可选，Cert 和 Key 必须成对出现)
	if opts.CertPath != "" || opts.KeyPath != "" {
		clientCert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client keypair: %v", err)
		}
		cfg.Certificates = []tls.Certificate{clientCert}
	}

	return cfg, nil
}
