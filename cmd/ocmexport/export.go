package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnslin/ocm-export/core/config"
	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/export"
	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/logging"
	"github.com/dnslin/ocm-export/core/metrics"
	"github.com/dnslin/ocm-export/core/progress"
)

type exportFlags struct {
	config      string
	force       bool
	workers     int
	logLevel    string
	metricsAddr string
}

func parseExportFlags(args []string) (*exportFlags, error) {
	f := &exportFlags{}
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "配置文件路径（默认查找 ./config.yaml）")
	fs.BoolVar(&f.force, "force", false, "忽略检查点从头开始")
	fs.IntVar(&f.workers, "workers", 0, "并发下载数，覆盖 ocm.max_workers")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别: debug, info, warn, error")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus 指标监听地址，例如 :9090")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("未知参数: %v", fs.Args())
	}
	return f, nil
}

// apply 命令行参数覆盖文件与环境变量中的配置。
func (f *exportFlags) apply(cfg *config.Config) error {
	if f.force {
		cfg.Export.Force = true
	}
	if f.workers > 0 {
		cfg.OCM.MaxWorkers = f.workers
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	return config.Validate(cfg)
}

func cmdExport(args []string) int {
	flags, err := parseExportFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(flags.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return exitUsage
	}
	if err := flags.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "错误: 参数无效: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 初始化日志失败: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		log.Errorf("创建客户端失败: %v", err)
		return exitUsage
	}

	exporter := export.New(catalog, exportOptions(cfg, catalog, logger))
	summary, err := exporter.Run(ctx)
	printSummary(summary)

	code := exitCodeFor(ctx, err)
	switch code {
	case exitOK:
	case exitInterrupted:
		log.Warnf("导出被中断，检查点停在 offset=%d", summary.FinalOffset)
	default:
		log.Errorf("导出失败: %v", err)
	}
	return code
}

// errInvalidConfig 用于按分类匹配凭据或配置错误。
var errInvalidConfig = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "")

func exitCodeFor(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil:
		return exitInterrupted
	case errors.Is(err, errInvalidConfig):
		return exitUsage
	default:
		return exitFailure
	}
}

func startMetricsServer(addr string, log httpclient.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infof("指标服务监听 %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("指标服务退出: %v", err)
		}
	}()
	return srv
}

func printSummary(s *export.Summary) {
	if s == nil {
		return
	}
	fmt.Printf("\n导出结束 run=%s\n", s.RunID)
	fmt.Printf("  分页:     %d（记录 %d）\n", s.Pages, s.Items)
	fmt.Printf("  文件夹:   %d\n", s.Folders)
	fmt.Printf("  文件:     %d 已调度 / %d 下载 / %d 已存在 / %d 失败\n", s.Files, s.Downloaded, s.Existing, s.Failed)
	if s.Canceled > 0 {
		fmt.Printf("  已取消:   %d\n", s.Canceled)
	}
	fmt.Printf("  数据量:   %s\n", progress.FormatBytes(s.Bytes))
	fmt.Printf("  检查点:   %d -> %d\n", s.StartOffset, s.FinalOffset)
	fmt.Printf("  耗时:     %s\n", progress.FormatDuration(s.Duration))
}
