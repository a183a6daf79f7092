// cmd/payment-service/main.go
package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"codepay/internal/pkg/bootstrap"
	"codepay/internal/pkg/httpclient"
	"codepay/internal/pkg/logger"
	"codepay/internal/pkg/mq"
	"codepay/internal/pkg/redis"
	"codepay/internal/zookeeper"

	activationApp "codepay/internal/service/activation/application"
	activationDomain "codepay/internal/service/activation/domain"
	activationInfra "codepay/internal/service/activation/infrastructure"
	activationHTTP "codepay/internal/service/activation/interfaces"
	paymentApp "codepay/internal/service/payment/application"
	paymentDomain "codepay/internal/service/payment/domain"
	paymentInfra "codepay/internal/service/payment/infrastructure"
	"codepay/internal/service/payment/infrastructure/rule"
	paymentHTTP "codepay/internal/service/payment/interfaces"
)

const serviceName = "payment-service"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8080,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			httpClient := httpclient.NewClient(tracer)

			// 1. 激活码存储与锁
			store, locker := buildActivationStore(cfg, httpClient)
			generator := activationDomain.NewGenerator(cfg.Activation.Prefix, cfg.Activation.Year)
			activationService := activationApp.NewActivationService(store, locker, generator, tracer)

			// 2. 订单历史仓储
			var orderRepo paymentDomain.OrderRepository
			if cfg.Infra.Mysql.DSN != "" {
				db, err := paymentInfra.NewMysqlDB(cfg.Infra.Mysql.DSN)
				if err != nil {
					log.Fatalf("failed to initialize mysql: %v", err)
				}
				orderRepo = paymentInfra.NewGormOrderRepository(db)
			} else {
				log.Println("WARNING: MYSQL_DSN is not set, order history is kept in memory only")
				orderRepo = paymentInfra.NewMemoryOrderRepository()
			}

			// 3. 支付成功事件发布（可选）
			var publisher paymentDomain.EventPublisher
			if cfg.Infra.Kafka.Brokers != "" {
				writer := mq.NewKafkaWriter(strings.Split(cfg.Infra.Kafka.Brokers, ","), cfg.Infra.Kafka.NotificationTopic)
				publisher = paymentInfra.NewPaymentEventProducerAdapter(writer)
			}

			// 4. 风控规则引擎
			ruleEngine, err := rule.NewCELRuleEngineAdapter()
			if err != nil {
				log.Fatalf("failed to initialize rule engine: %v", err)
			}

			gateway := paymentInfra.NewGatewayHTTPAdapter(httpClient, cfg.Gateway.Endpoint,
				time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)

			paymentService := paymentApp.NewPaymentService(
				paymentApp.MerchantConfig{
					ID:        cfg.Merchant.ID,
					Secret:    cfg.Merchant.Secret,
					NotifyURL: cfg.Merchant.NotifyURL,
					ReturnURL: cfg.Merchant.ReturnURL,
				},
				gateway,
				orderRepo,
				activationService,
				publisher,
				ruleEngine,
				cfg.Risk.Rules,
				tracer,
			)

			// 5. 注册路由
			paymentHTTP.NewPaymentHandler(paymentService).RegisterRoutes(appCtx.Mux)
			activationHTTP.NewActivationHandler(activationService).RegisterRoutes(appCtx.Mux)
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
	})
}

// buildActivationStore 按配置选择存储后端和配套的锁实现。
// Redis 自带租约锁；JSONBin 没有任何原子原语，必须搭配 ZooKeeper 锁
// 才能在多实例部署下保证激活路径的互斥。
func buildActivationStore(cfg *bootstrap.Config, httpClient *httpclient.Client) (activationDomain.SnapshotStore, activationDomain.Locker) {
	switch cfg.Activation.Store {
	case "redis":
		redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			log.Fatalf("failed to initialize redis client: %v", err)
		}
		nodeID := serviceName + "-" + uuid.New().String()[:8]
		locker, err := activationInfra.NewRedisLocker(redisClient, nodeID)
		if err != nil {
			log.Fatalf("failed to initialize redis locker: %v", err)
		}
		return activationInfra.NewRedisSnapshotStore(redisClient), locker

	case "jsonbin":
		store := activationInfra.NewJSONBinStore(httpClient,
			cfg.Activation.JSONBin.Endpoint, cfg.Activation.JSONBin.BinID, cfg.Activation.JSONBin.APIKey)
		if cfg.Infra.Zookeeper.Servers != "" {
			conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
			if err != nil {
				log.Fatalf("failed to connect to zookeeper: %v", err)
			}
			return store, activationInfra.NewZookeeperLocker(conn)
		}
		log.Println("WARNING: jsonbin store without zookeeper lock is only safe for single-instance deployments")
		return store, activationInfra.NewKeyedMutexLocker()

	default:
		log.Println("WARNING: using in-memory activation store, codes are lost on restart")
		return activationInfra.NewMemorySnapshotStore(), activationInfra.NewKeyedMutexLocker()
	}
}
