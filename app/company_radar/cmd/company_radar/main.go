package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iWorld-y/company_radar/app/company_radar/pkg/config"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/engine"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/logger"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/model"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/notify"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/report"
	"github.com/iWorld-y/company_radar/app/company_radar/pkg/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	target := flag.String("target", "", "研究目标（公司名或股票代码）")
	region := flag.String("region", "", "目标所在地区 (ISO 3166-1 alpha-2，如 cn、jp)")
	language := flag.String("language", "", "语言提示 (BCP47，如 zh-CN)")
	outputDir := flag.String("output", "output", "报告输出目录")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 验证配置
	if cfg.LLM.APIKey == "" {
		log.Fatal("配置错误: 未设置 llm.api_key")
	}
	if *target == "" && flag.NArg() > 0 {
		*target = strings.Join(flag.Args(), " ")
	}
	if *target == "" {
		log.Fatal("用法: company_radar -target <公司名或股票代码> [-region cn] [-config configs/config.yaml]")
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动公司雷达...")

	// 初始化数据库连接
	// 如果配置了数据库信息，则尝试连接
	var store *storage.Storage
	if cfg.DB.Host != "" {
		s, err := storage.NewStorage(cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 将仅生成本地报告文件。", err)
		} else {
			store = s
			defer store.Close()
			logger.Log.Info("已成功连接到数据库")
		}
	} else {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
	}

	// 3. 初始化引擎
	eng, err := engine.NewEngine(cfg, store)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 4. 运行研究会话
	session, err := eng.Run(context.Background(), engine.RunOptions{
		Target: model.ResearchTarget{
			Identifier: *target,
			Region:     strings.ToLower(*region),
			Language:   *language,
		},
		ProgressCallback: func(status string, progress int) {
			logger.Log.Infof("进度 %3d%% - %s", progress, status)
		},
	})
	if err != nil {
		logger.Log.Fatalf("研究会话失败: %v", err)
	}

	// 5. 装配并落盘报告
	rep := report.Assemble(session)
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Log.Fatalf("无法创建输出目录: %v", err)
	}

	base := fmt.Sprintf("%s_%s", sanitizeName(*target), time.Now().Format("20060102"))
	mdPath := filepath.Join(*outputDir, base+".md")
	htmlPath := filepath.Join(*outputDir, base+".html")

	markdown := rep.Markdown()
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		logger.Log.Fatalf("写入 Markdown 报告失败: %v", err)
	}

	f, err := os.Create(htmlPath)
	if err != nil {
		logger.Log.Fatalf("无法创建 HTML 报告: %v", err)
	}
	if err := rep.RenderHTML(f); err != nil {
		f.Close()
		logger.Log.Fatalf("生成 HTML 失败: %v", err)
	}
	f.Close()

	// 保存到数据库
	if store != nil {
		htmlBytes, _ := os.ReadFile(htmlPath)
		if err := store.SaveReport(session.ID, *target, markdown, string(htmlBytes)); err != nil {
			logger.Log.Errorf("保存报告失败 [%s]: %v", *target, err)
		} else {
			logger.Log.Infof("报告已保存到数据库 [%s]", *target)
		}
	}

	// 6. 邮件通知
	if cfg.Notify.Email.Enabled {
		htmlBytes, _ := os.ReadFile(htmlPath)
		sender := notify.NewEmailSender(cfg.Notify.Email)
		if err := sender.SendReport(*target, markdown, string(htmlBytes)); err != nil {
			logger.Log.Errorf("邮件通知失败: %v", err)
		}
	}

	logger.Log.Infof("✅ 公司研究报告生成完毕: %s (评分 %.1f, 终止原因 %s)",
		mdPath, scoreOf(session), session.Reason)
}

// sanitizeName 将目标名转换为安全的文件名
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

func scoreOf(session *model.ResearchSession) float64 {
	if a := session.FinalAssessment(); a != nil {
		return a.Score
	}
	return 0
}
