// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 聚合了所有服务共享的配置。
// 来源优先级：环境变量 > yaml 配置文件 > 默认值。
// 商户密钥等敏感信息只应通过环境变量注入，不要写进配置文件。
type Config struct {
	Merchant struct {
		ID        string `yaml:"id"`
		Secret    string `yaml:"secret"`
		NotifyURL string `yaml:"notify_url"`
		ReturnURL string `yaml:"return_url"`
	} `yaml:"merchant"`

	Gateway struct {
		Endpoint       string `yaml:"endpoint"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"gateway"`

	Activation struct {
		Prefix  string `yaml:"prefix"`
		Year    string `yaml:"year"`
		Store   string `yaml:"store"` // redis | jsonbin | memory
		JSONBin struct {
			Endpoint string `yaml:"endpoint"`
			BinID    string `yaml:"bin_id"`
			APIKey   string `yaml:"api_key"`
		} `yaml:"jsonbin"`
	} `yaml:"activation"`

	Risk struct {
		// CEL 表达式列表，全部为 true 时回调才会放行
		Rules []string `yaml:"rules"`
	} `yaml:"risk"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Kafka struct {
			Brokers           string `yaml:"brokers"`
			NotificationTopic string `yaml:"notification_topic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Servers string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置并缓存为当前配置。服务 main 在最开始调用。
func Init() {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("FATAL: cannot read config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: cannot parse config file %s: %v", path, err)
		}
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init() has not been called")
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Gateway.Endpoint = "https://mzf.akwl.net/api.php"
	cfg.Gateway.TimeoutSeconds = 10
	cfg.Activation.Prefix = "HORSE"
	cfg.Activation.Year = "2026"
	cfg.Activation.Store = "memory"
	cfg.Activation.JSONBin.Endpoint = "https://api.jsonbin.io/v3"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Redis.Addrs = "localhost:6379"
	cfg.Infra.Kafka.Brokers = "localhost:9092"
	cfg.Infra.Kafka.NotificationTopic = "payment-notifications"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	return cfg
}

// applyEnvOverrides 用环境变量覆盖配置文件中的同名项。
// 变量名沿用原部署的命名（MERCHANT_ID 等），方便平滑迁移。
func applyEnvOverrides(cfg *Config) {
	overrideEnv(&cfg.Merchant.ID, "MERCHANT_ID")
	overrideEnv(&cfg.Merchant.Secret, "MERCHANT_SECRET")
	overrideEnv(&cfg.Merchant.NotifyURL, "NOTIFY_URL")
	overrideEnv(&cfg.Merchant.ReturnURL, "RETURN_URL")
	overrideEnv(&cfg.Gateway.Endpoint, "GATEWAY_ENDPOINT")
	overrideEnv(&cfg.Activation.Store, "ACTIVATION_STORE")
	overrideEnv(&cfg.Activation.JSONBin.BinID, "JSONBIN_BIN_ID")
	overrideEnv(&cfg.Activation.JSONBin.APIKey, "JSONBIN_API_KEY")
	overrideEnv(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	overrideEnv(&cfg.Infra.Redis.Addrs, "REDIS_ADDRS")
	overrideEnv(&cfg.Infra.Mysql.DSN, "MYSQL_DSN")
	overrideEnv(&cfg.Infra.Kafka.Brokers, "KAFKA_BROKERS")
	overrideEnv(&cfg.Infra.Zookeeper.Servers, "ZK_SERVERS")
	overrideEnv(&cfg.Infra.Nacos.ServerAddrs, "NACOS_SERVER_ADDRS")
	overrideEnv(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	overrideEnv(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
}

func overrideEnv(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}
