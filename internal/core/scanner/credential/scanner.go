/**
 * 弱口令与未授权访问检查
 * @author: sun977
 * @date: 2025.11.08
 * @description: 对开放端口执行未授权访问探测与默认口令检查，命中结果转换为漏洞记录
 */
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"neorecon/internal/core/lib/network/qos"
	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
	"neorecon/internal/pkg/logger"
)

const (
	DefaultLimit          = 50
	DefaultAttemptTimeout = 3 * time.Second

	defaultCredsSeverity   = model.SeverityHigh
	defaultCredsCVSS       = 8.8
	defaultCredsMitigation = "Change default credentials"
)

// serviceAliases 服务识别结果 -> 检查器名称
var serviceAliases = map[string]string{
	"ftp":           "ftp",
	"ssh":           "ssh",
	"telnet":        "telnet",
	"mysql":         "mysql",
	"postgresql":    "postgres",
	"postgres":      "postgres",
	"mssql":         "mssql",
	"oracle":        "oracle",
	"clickhouse":    "clickhouse",
	"mongodb":       "mongo",
	"mongo":         "mongo",
	"redis":         "redis",
	"snmp":          "snmp",
	"microsoft-ds":  "smb",
	"netbios-ssn":   "smb",
	"smb":           "smb",
	"elasticsearch": "elasticsearch",
}

// portHints 服务未识别时按端口推断
var portHints = map[int]string{
	6379:  "redis",
	9000:  "clickhouse",
	9200:  "elasticsearch",
	27017: "mongo",
}

// Scanner 凭据检查器集合，可并发使用
type Scanner struct {
	limiter        *qos.AdaptiveLimiter // 全局并发登录尝试
	rtt            *qos.RttEstimator    // 目标响应慢时放宽单次超时
	attemptTimeout time.Duration

	mu        sync.RWMutex
	checkers  map[string]Checker
	users     []string // 自定义字典，为空时使用内置默认凭据
	passwords []string
}

// NewScanner limit<=0 时使用 DefaultLimit
func NewScanner(limit int, checkers ...Checker) *Scanner {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Scanner{
		limiter:        qos.NewAdaptiveLimiter(limit, 1, limit*4),
		rtt:            qos.NewRttEstimator(),
		attemptTimeout: DefaultAttemptTimeout,
		checkers:       make(map[string]Checker),
	}
	for _, c := range checkers {
		s.Register(c)
	}
	return s
}

// Register 注册检查器，同名覆盖
func (s *Scanner) Register(c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[c.Name()] = c
}

// SetDictionary 自定义用户名/密码字典
func (s *Scanner) SetDictionary(users, passwords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.passwords = passwords
}

// SetAttemptTimeout 单次登录尝试超时
func (s *Scanner) SetAttemptTimeout(d time.Duration) {
	if d > 0 {
		s.attemptTimeout = d
	}
}

// Limiter 暴露限流器
func (s *Scanner) Limiter() *qos.AdaptiveLimiter {
	return s.limiter
}

// Resolve 按服务名 (其次端口) 选择检查器
func (s *Scanner) Resolve(service string, port int) (Checker, bool) {
	name, ok := serviceAliases[strings.ToLower(service)]
	if !ok {
		name, ok = portHints[port]
	}
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkers[name]
	return c, ok
}

// CheckMisconfigurations 未授权访问探测
func (s *Scanner) CheckMisconfigurations(ctx context.Context, host string, port int, service string) []model.Vulnerability {
	checker, ok := s.Resolve(service, port)
	if !ok {
		return nil
	}

	var results []model.Vulnerability
	for _, probe := range misconfigProbes {
		if probe.checker != checker.Name() {
			continue
		}
		success, err := s.attempt(ctx, checker, host, port, probe.auth)
		if err != nil {
			logger.Debugf("[Credential] misconfig probe %s on %s:%d: %v", probe.kind, host, port, err)
			if errors.Is(err, ErrConnectionFailed) || ctx.Err() != nil {
				break
			}
			continue
		}
		if success {
			results = append(results, probe.record(service))
		}
	}
	return results
}

// CheckDefaultCredentials 默认口令检查，命中第一组即停止
func (s *Scanner) CheckDefaultCredentials(ctx context.Context, host string, port int, service string) []model.Vulnerability {
	checker, ok := s.Resolve(service, port)
	if !ok {
		return nil
	}

	for _, auth := range s.dictionary(checker) {
		if ctx.Err() != nil {
			return nil
		}
		success, err := s.attempt(ctx, checker, host, port, auth)
		logger.Debugf("[Credential] %s %s:%d user=%q success=%v err=%v", checker.Name(), host, port, auth.Username, success, err)
		if err != nil {
			if errors.Is(err, ErrAuthFailed) {
				continue
			}
			// 连接失败或协议不匹配时不再尝试该端口
			return nil
		}
		if success {
			return []model.Vulnerability{defaultCredsRecord(checker, service, auth)}
		}
	}
	return nil
}

func (s *Scanner) dictionary(c Checker) []Auth {
	s.mu.RLock()
	users, passwords := s.users, s.passwords
	s.mu.RUnlock()

	if len(passwords) > 0 && (len(users) > 0 || c.Mode() == AuthModeOnlyPass) {
		return Generate(users, passwords, c.Mode())
	}
	return DefaultCredentials(c.Name())
}

// AttemptTimeout 当前单次尝试超时，不低于 SetAttemptTimeout 设置的值
func (s *Scanner) AttemptTimeout() time.Duration {
	return s.rtt.TimeoutAtLeast(s.attemptTimeout)
}

// attempt 单次尝试，只有连接失败反馈为拥塞
func (s *Scanner) attempt(ctx context.Context, c Checker, host string, port int, auth Auth) (bool, error) {
	var success bool
	err := s.limiter.Do(ctx, func() error {
		actx, cancel := context.WithTimeout(ctx, s.AttemptTimeout())
		defer cancel()
		start := time.Now()
		ok, err := c.Check(actx, host, port, auth)
		// 只有完成了一次完整交互的样本才计入 RTT
		if err == nil || errors.Is(err, ErrAuthFailed) {
			s.rtt.Update(time.Since(start))
		}
		success = ok
		return err
	}, func(err error) bool {
		return errors.Is(err, ErrConnectionFailed)
	})
	return success, err
}

func defaultCredsRecord(c Checker, service string, auth Auth) model.Vulnerability {
	name := strings.ToUpper(c.Name())
	desc := fmt.Sprintf("%s service accepts default credentials for user '%s'", name, auth.Username)
	if c.Mode() == AuthModeOnlyPass {
		desc = fmt.Sprintf("%s service accepts a default password", name)
	}
	return model.Vulnerability{
		ID:               "DEFAULT-CREDS-" + name,
		Description:      desc,
		Severity:         model.String(defaultCredsSeverity),
		CVSSScore:        model.Float(defaultCredsCVSS),
		ExploitAvailable: model.Bool(true),
		Mitigation:       model.String(defaultCredsMitigation),
		Category:         model.String(vuln.CategoryAuth),
		CWEID:            model.String("CWE-1392"),
		AttackVector:     model.String(vuln.AttackVector(service, "")),
	}
}
