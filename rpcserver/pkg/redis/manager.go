package redis

// Manager 会话、登录限制、用户缓存共用一个连接
type Manager interface {
	GetClient() Client
	GetSession() SessionManager
	GetLoginLimiter() LoginLimiter
	GetUserCache() UserCache

	// Close 关闭底层连接
	Close() error
}

type manager struct {
	client       Client
	session      SessionManager
	loginLimiter LoginLimiter
	userCache    UserCache
}

// NewManager 创建Redis管理器
func NewManager(client Client, login LoginOptions) Manager {
	return &manager{
		client:       client,
		session:      NewSessionManager(client),
		loginLimiter: NewLoginLimiter(client, login),
		userCache:    NewUserCache(client),
	}
}

func (m *manager) GetClient() Client             { return m.client }
func (m *manager) GetSession() SessionManager    { return m.session }
func (m *manager) GetLoginLimiter() LoginLimiter { return m.loginLimiter }
func (m *manager) GetUserCache() UserCache       { return m.userCache }

func (m *manager) Close() error {
	return m.client.Close()
}
