package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"codepay/internal/pkg/logger"
	"codepay/internal/pkg/redis"
	"codepay/internal/service/activation/application"
	"codepay/internal/service/activation/domain"
	"codepay/internal/service/activation/infrastructure"
)

// codegen 离线批量生成激活码。
// 默认往输出目录写一份可直接导入 JSONBin 的快照文件和一份纯文本清单；
// 传入 -redis 时同时把生成的码登记进线上 Redis 存储。

// seedDocument 是快照的落盘格式，record 包装与 JSONBin 的返回体保持一致。
type seedDocument struct {
	Record struct {
		Codes      map[string]domain.IssuanceRecord `json:"codes"`
		UsedCodes  map[string]domain.UsageRecord    `json:"usedCodes"`
		CreatedAt  time.Time                        `json:"createdAt"`
		TotalCount int                              `json:"totalCount"`
	} `json:"record"`
}

func main() {
	count := flag.Int("count", 100, "生成数量")
	prefix := flag.String("prefix", "HORSE", "激活码前缀")
	year := flag.String("year", "2026", "激活码年份段")
	outDir := flag.String("out", ".", "输出目录")
	redisAddrs := flag.String("redis", "", "Redis 地址，非空时直接登记到线上存储")
	flag.Parse()

	if *count <= 0 {
		log.Fatal("count must be positive")
	}

	gen := domain.NewGenerator(*prefix, *year)
	codes := gen.Batch(*count)
	now := time.Now()

	doc := seedDocument{}
	doc.Record.Codes = make(map[string]domain.IssuanceRecord, len(codes))
	doc.Record.UsedCodes = make(map[string]domain.UsageRecord)
	doc.Record.CreatedAt = now
	doc.Record.TotalCount = len(codes)
	for i, code := range codes {
		doc.Record.Codes[code] = domain.IssuanceRecord{CreatedAt: now, Index: i + 1}
	}

	stamp := now.Format("2006-01-02")
	jsonPath := filepath.Join(*outDir, fmt.Sprintf("codes_%s.json", stamp))
	listPath := filepath.Join(*outDir, fmt.Sprintf("codes_list_%s.txt", stamp))

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		log.Fatalf("marshal seed document: %v", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", jsonPath, err)
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(codes, "\n")+"\n"), 0o644); err != nil {
		log.Fatalf("write %s: %v", listPath, err)
	}

	if *redisAddrs != "" {
		seedRedis(*redisAddrs, codes)
	}

	fmt.Printf("generated %d codes\n  %s\n  %s\n", len(codes), jsonPath, listPath)
}

func seedRedis(addrs string, codes []string) {
	logger.Init("codegen")
	client, err := redis.NewClient(addrs)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer client.Close()

	nodeID := "codegen-" + time.Now().Format("150405")
	locker, err := infrastructure.NewRedisLocker(client, nodeID)
	if err != nil {
		log.Fatalf("init redis locker: %v", err)
	}
	store := infrastructure.NewRedisSnapshotStore(client)
	service := application.NewActivationService(store, locker, nil, otel.Tracer("codegen"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := service.SeedCodes(ctx, codes); err != nil {
		log.Fatalf("seed redis store: %v", err)
	}
	fmt.Printf("seeded %d codes into redis\n", len(codes))
}
