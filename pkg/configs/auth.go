package configs

import "github.com/spf13/viper"

// AuthConfig 调用方身份由前置的 oauth2-proxy 注入请求头，本服务只读取不校验签名.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 按顺序取第一个非空的头作为用户标识
	IdentityHeaders []string `mapstructure:"identity_headers" rule:"dive,required"`
	RoleHeader      string   `mapstructure:"role_header"`
	AdminRole       string   `mapstructure:"admin_role"`
	SkipPaths       []string `mapstructure:"skip_paths"`
	// 本地调试允许 ?user=
	DevAllowQuery bool `mapstructure:"dev_allow_query"`
}

var (
	defaultIdentityHeaders = []string{"X-Auth-Request-Email", "X-Forwarded-Email", "X-User"}
	defaultRoleHeader      = "X-Role"
)

// Identity 读取身份用的请求头，未配置时使用 oauth2-proxy 的默认头.
func (c *AuthConfig) Identity() (users []string, role string) {
	users, role = c.IdentityHeaders, c.RoleHeader
	if len(users) == 0 {
		users = defaultIdentityHeaders
	}

	if role == "" {
		role = defaultRoleHeader
	}

	return users, role
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.identity_headers", defaultIdentityHeaders)
	v.SetDefault("auth.role_header", defaultRoleHeader)
	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.skip_paths", []string{"/metrics", "/debug/pprof", "/health", "/swagger", "/api/v1/container"})
}
