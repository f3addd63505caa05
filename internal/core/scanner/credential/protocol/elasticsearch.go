package protocol

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/scanner/credential"
)

// ElasticsearchChecker Elasticsearch HTTP 认证检查
// 无用户名时请求 /_cat/indices 判断集群是否开放读取
type ElasticsearchChecker struct {
	client *http.Client // 短连接，经全局拨号器
}

// NewElasticsearchChecker 创建 Elasticsearch 检查器
func NewElasticsearchChecker() *ElasticsearchChecker {
	return &ElasticsearchChecker{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialer.Get().DialContext(ctx, network, addr)
				},
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: true}, // 自签名证书
				DisableKeepAlives: true,
			},
			Timeout: 5 * time.Second,
		},
	}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *ElasticsearchChecker) Name() string {
	return "elasticsearch"
}

// Mode 用户名 + 密码 (HTTP Basic)
func (c *ElasticsearchChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check 先试 HTTP，连接被重置时改用 HTTPS 再试一次
func (c *ElasticsearchChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	ok, err := c.check(ctx, "http", host, port, auth)
	if err == credential.ErrConnectionFailed && ctx.Err() == nil {
		// 开启 TLS 的集群对明文请求直接断开
		return c.check(ctx, "https", host, port, auth)
	}
	return ok, err
}

func (c *ElasticsearchChecker) check(ctx context.Context, scheme, host string, port int, auth credential.Auth) (bool, error) {
	// 匿名: 能列出索引说明集群未开启安全认证
	// 带凭据: _authenticate 只有认证通过才返回 200
	path := "/_cat/indices"
	if auth.Username != "" {
		path = "/_security/_authenticate"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s://%s%s", scheme, hostPort(host, port), path), nil)
	if err != nil {
		return false, err
	}
	if auth.Username != "" {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, credential.ErrConnectionFailed
	}
	defer resp.Body.Close()

	// 200 成功；401/403 凭据无效或匿名被拒；其他状态多半不是 Elasticsearch
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	}
	return false, credential.ErrProtocolError
}
